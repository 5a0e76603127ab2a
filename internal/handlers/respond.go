package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/campaign"
	"luxegen-backend/internal/middleware"
	"luxegen-backend/internal/models"
)

// AssetRehoster uploads an inline image and returns its public URL.
type AssetRehoster interface {
	Rehost(ctx context.Context, ownerID, dataURI, prefix string) (string, error)
}

// AssetRemover deletes objects previously re-hosted by this service.
type AssetRemover interface {
	KeyFromPublicURL(publicURL string) (string, bool)
	Remove(ctx context.Context, keys []string) error
}

// ownedKeys maps urls to object keys re-hosted for ownerID. Everything else,
// including keys under another operator's prefix, is skipped.
func ownedKeys(remover AssetRemover, ownerID string, urls ...string) []string {
	var keys []string
	for _, u := range urls {
		key, ok := remover.KeyFromPublicURL(u)
		if ok && assets.OwnsKey(ownerID, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return "", false
	}
	return userID, true
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, campaign.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, campaign.ErrBusy):
		return http.StatusConflict, "operation in progress"
	case errors.Is(err, campaign.ErrInvalidTransition):
		return http.StatusConflict, "invalid state transition"
	case errors.Is(err, models.ErrImageIndexOutOfRange):
		return http.StatusBadRequest, "invalid image index"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, models.ErrPlanningFailed):
		return http.StatusBadGateway, "planning failed"
	case errors.Is(err, models.ErrAssetUploadFailed):
		return http.StatusBadGateway, "asset upload failed"
	case errors.Is(err, models.ErrSynthesisEmpty):
		return http.StatusBadGateway, "synthesis failed"
	case errors.Is(err, models.ErrPersistenceFailed):
		return http.StatusInternalServerError, "persistence failed"
	}
	return http.StatusInternalServerError, "internal error"
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.JSON(status, models.ErrorResponse{Error: msg, Message: err.Error()})
}
