package handler

import (
	"net/http"

	"fieldops/internal/middleware"
	"fieldops/internal/service"
	"fieldops/pkg/pagination"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	noteService service.NoteService
}

func NewNoteHandler(noteService service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

func (h *NoteHandler) RegisterRoutes(router *gin.RouterGroup) {
	notes := router.Group("/api/work-orders/:id/notes")
	{
		notes.GET("", middleware.RequireRole(allRoles...), h.List)
		notes.POST("", middleware.RequireRole(allRoles...), h.Create)
	}
}

// List returns a work order's notes, newest first
// @Summary      List notes
// @Tags         notes
// @Produce      json
// @Security     BearerAuth
// @Param        id     path   string  true   "Work Order ID"
// @Param        page   query  int     false  "Page number (default 1)"
// @Param        limit  query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=response.Page}
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id}/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	params := pagination.Parse(c)
	notes, total, err := h.noteService.ListByWorkOrder(c.Request.Context(), actor, c.Param("id"), params.Page, params.Limit)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, notes, total, params.Page, params.Limit))
}

// Create appends a note to a work order
// @Summary      Create note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Work Order ID"
// @Param        payload  body      service.CreateNoteRequest  true  "Note Payload"
// @Success      201      {object}  response.Response{data=service.NoteResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/work-orders/{id}/notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	note, err := h.noteService.Create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, note))
}
