package handlers

import (
	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

// respondError writes the documented status for service errors and a
// generic 500 for everything else.
func respondError(c *gin.Context, log *logging.Logger, err error) {
	if se, ok := services.AsError(err); ok {
		utils.Error(c, se.Status, se.Message)
		return
	}
	log.WithError(err).Error("request failed", "method", c.Request.Method, "path", c.FullPath())
	utils.InternalServerError(c, "Something went wrong, please try again later")
}

func sanitizeAll(users []*models.User) []models.UserSanitized {
	out := make([]models.UserSanitized, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitize())
	}
	return out
}

func nonNil[T any](list []*T) []*T {
	if list == nil {
		return []*T{}
	}
	return list
}
