package handler

import (
	"net/http"

	"fieldops/internal/middleware"
	"fieldops/internal/service"
	"fieldops/pkg/pagination"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.GET("", middleware.RequireRole(allRoles...), h.List)
		approvals.POST("", middleware.RequireRole(allRoles...), h.Create)
		approvals.PUT("/:id/approve", middleware.RequireRole(staffRoles...), h.Approve)
		approvals.PUT("/:id/reject", middleware.RequireRole(staffRoles...), h.Reject)
	}
}

// List returns the approval requests visible to the caller's role
// @Summary      List approval requests
// @Description  Routed by role: admins see all types, managers budget and escalation, dispatchers escalation only
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        status  query  string  false  "pending, approved or rejected"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=response.Page}
// @Router       /api/approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	params := pagination.Parse(c)
	filter := service.ApprovalListFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	requests, total, err := h.approvalService.List(c.Request.Context(), actor, filter)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, total, params.Page, params.Limit))
}

// Create submits a new approval request
// @Summary      Create approval request
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateApprovalRequestDTO  true  "Approval Request Payload"
// @Success      201      {object}  response.Response{data=service.ApprovalRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/approvals [post]
func (h *ApprovalHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.CreateApprovalRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.approvalService.Create(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// Approve resolves a pending request and executes its action
// @Summary      Approve request
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Approval Request ID"
// @Success      200  {object}  response.Response{data=service.ApprovalRequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/approvals/{id}/approve [put]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	resolved, err := h.approvalService.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, resolved))
}

// Reject resolves a pending request without executing it
// @Summary      Reject request
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true   "Approval Request ID"
// @Param        payload  body      service.RejectRequestDTO  false  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.ApprovalRequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/reject [put]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.RejectRequestDTO
	_ = c.ShouldBindJSON(&req) // reason is optional

	resolved, err := h.approvalService.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, resolved))
}
