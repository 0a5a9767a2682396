package handler

import (
	"net/http"

	"fieldops/internal/middleware"
	"fieldops/internal/service"
	"fieldops/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService service.TaskService
}

func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	nested := router.Group("/api/work-orders/:id/tasks")
	{
		nested.GET("", middleware.RequireRole(allRoles...), h.Checklist)
		nested.POST("", middleware.RequireRole(staffRoles...), h.Create)
	}

	tasks := router.Group("/api/tasks")
	{
		tasks.PUT("/:id", middleware.RequireRole(staffRoles...), h.Update)
		tasks.DELETE("/:id", middleware.RequireRole(staffRoles...), h.Delete)
		tasks.PATCH("/:id/complete", middleware.RequireRole(allRoles...), h.Complete)
		tasks.PATCH("/:id/incomplete", middleware.RequireRole(allRoles...), h.Uncomplete)
	}
}

// Checklist returns the work order's tasks grouped by phase
// @Summary      Get checklist
// @Description  Tasks grouped pre_visit / on_site / post_site in fixed order
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.ChecklistResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id}/tasks [get]
func (h *TaskHandler) Checklist(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	checklist, err := h.taskService.ListByWorkOrder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, checklist))
}

// Create adds a task to a work order
// @Summary      Create task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Work Order ID"
// @Param        payload  body      service.CreateTaskRequest  true  "Task Payload"
// @Success      201      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/work-orders/{id}/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// Update edits a task's name or category
// @Summary      Update task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Task ID"
// @Param        payload  body      service.UpdateTaskRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=service.TaskResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// Delete removes a task
// @Summary      Delete task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Task deleted successfully"))
}

// Complete marks a task done
// @Summary      Complete task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=service.TaskResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/tasks/{id}/complete [patch]
func (h *TaskHandler) Complete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	task, err := h.taskService.Complete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// Uncomplete clears a task's completion
// @Summary      Uncomplete task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=service.TaskResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/tasks/{id}/incomplete [patch]
func (h *TaskHandler) Uncomplete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token subject"))
		return
	}

	task, err := h.taskService.Uncomplete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), response.Error(errStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}
