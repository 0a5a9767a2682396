package handler

import (
	"net/http"

	"fieldops/internal/middleware"
	"fieldops/internal/model"
	"fieldops/internal/service"
	"fieldops/pkg/pagination"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

type WorkOrderHandler struct {
	orderService service.WorkOrderService
}

func NewWorkOrderHandler(orderService service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{orderService: orderService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/work-orders")
	{
		orders.GET("", middleware.RequireRole(allRoles...), h.List)
		orders.POST("", middleware.RequireRole(staffRoles...), h.Create)
		orders.GET("/:id", middleware.RequireRole(allRoles...), h.GetByID)
		orders.PUT("/:id", middleware.RequireRole(staffRoles...), h.Update)
		orders.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.Delete)

		orders.GET("/:id/transition", middleware.RequireRole(allRoles...), h.Transition)
		orders.PATCH("/:id/confirm", middleware.RequireRole(allRoles...), h.Confirm)
		orders.PATCH("/:id/status", middleware.RequireRole(allRoles...), h.UpdateWorkStatus)
		orders.PATCH("/:id/payment", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.MarkPaid)
	}
}

// List returns work orders filtered by status/work_status/priority/assignee
// @Summary      List work orders
// @Description  Paginated work orders; field agents only see their own assignments
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        status       query  string  false  "Coarse status filter"
// @Param        work_status  query  string  false  "Work status filter"
// @Param        priority     query  string  false  "Priority filter"
// @Param        assignee_id  query  string  false  "Assignee filter"
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=response.Page}
// @Failure      400  {object}  response.Response
// @Router       /api/work-orders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	params := pagination.Parse(c)
	filter := service.WorkOrderListFilter{
		Status:     c.Query("status"),
		WorkStatus: c.Query("work_status"),
		Priority:   c.Query("priority"),
		AssigneeID: c.Query("assignee_id"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	orders, total, err := h.orderService.List(c.Request.Context(), actor, filter)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, orders, total, params.Page, params.Limit))
}

// Create adds a new work order
// @Summary      Create work order
// @Tags         work-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateWorkOrderRequest  true  "Work Order Payload"
// @Success      201      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/work-orders [post]
func (h *WorkOrderHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// GetByID fetches one work order
// @Summary      Get work order
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id} [get]
func (h *WorkOrderHandler) GetByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Update edits work order fields
// @Summary      Update work order
// @Tags         work-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Work Order ID"
// @Param        payload  body      service.UpdateWorkOrderRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/work-orders/{id} [put]
func (h *WorkOrderHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.UpdateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Delete removes a work order
// @Summary      Delete work order
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id} [delete]
func (h *WorkOrderHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Work order deleted successfully"))
}

// Transition returns the computed transition button for the caller
// @Summary      Get transition decision
// @Description  Label, target, enablement and confirmation prose for the caller's next action
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=workorder.Decision}
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id}/transition [get]
func (h *WorkOrderHandler) Transition(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	decision, err := h.orderService.Transition(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, decision))
}

// Confirm moves a scheduled work order to confirmed
// @Summary      Confirm work order
// @Description  scheduled -> confirmed, gated by role and the 24h assignee window
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/confirm [patch]
func (h *WorkOrderHandler) Confirm(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	order, err := h.orderService.Confirm(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateWorkStatus advances (or reverts) the field-visit sub-state
// @Summary      Update work status
// @Description  One step along not_started -> in_route -> checked_in -> checked_out -> completed, or the completed -> checked_out revert
// @Tags         work-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Work Order ID"
// @Param        payload  body      service.UpdateWorkStatusRequest  true  "Target work status"
// @Success      200      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-orders/{id}/status [patch]
func (h *WorkOrderHandler) UpdateWorkStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.UpdateWorkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.UpdateWorkStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// MarkPaid settles a completed work order's payment
// @Summary      Mark work order paid
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/payment [patch]
func (h *WorkOrderHandler) MarkPaid(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	order, err := h.orderService.MarkPaid(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
