package handler

import (
	"errors"
	"net/http"

	"fieldops/internal/model"
	"fieldops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// staffRoles may manage work orders; allRoles is any authenticated user.
var (
	staffRoles = []string{model.RoleAdmin, model.RoleManager, model.RoleDispatcher}
	allRoles   = []string{model.RoleAdmin, model.RoleManager, model.RoleDispatcher, model.RoleFieldAgent}
)

// actorFromContext rebuilds the service Actor from the claims the auth
// middleware stored on the request context.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	idVal, ok := c.Get("userID")
	if !ok {
		return service.Actor{}, false
	}
	idStr, _ := idVal.(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Actor{}, false
	}

	roleVal, _ := c.Get("userRole")
	role, _ := roleVal.(string)
	return service.Actor{ID: id, Role: role}, true
}

// errStatus maps service error categories onto HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
