package handlers

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/models"
)

type PersonaStore interface {
	ListPersonas(ctx context.Context, ownerID string) ([]models.Persona, error)
	GetPersona(ctx context.Context, personaID, ownerID string) (*models.Persona, error)
	InsertPersona(ctx context.Context, p *models.Persona) error
	DeletePersona(ctx context.Context, personaID, ownerID string) error
}

type PersonasHandler struct {
	store    PersonaStore
	rehoster AssetRehoster
	remover  AssetRemover
	logger   *slog.Logger
}

func NewPersonasHandler(store PersonaStore, rehoster AssetRehoster, remover AssetRemover, logger *slog.Logger) *PersonasHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PersonasHandler{
		store:    store,
		rehoster: rehoster,
		remover:  remover,
		logger:   logger,
	}
}

// ListPersonas godoc
// @Summary     List personas
// @Description Lists the system catalog personas and the personas owned by the caller
// @Tags        personas
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.PersonaListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /personas [get]
func (h *PersonasHandler) ListPersonas(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	personas, err := h.store.ListPersonas(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list personas",
			Message: err.Error(),
		})
		return
	}

	response := models.PersonaListResponse{Personas: make([]models.PersonaResponse, 0, len(personas))}
	for i := range personas {
		response.Personas = append(response.Personas, models.NewPersonaResponse(&personas[i]))
	}
	c.JSON(http.StatusOK, response)
}

// CreatePersona godoc
// @Summary     Import a persona
// @Description Adds a persona owned by the caller. Inline data URI images are re-hosted first.
// @Tags        personas
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreatePersonaRequest true "Persona"
// @Success     201 {object} models.PersonaResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /personas [post]
func (h *PersonasHandler) CreatePersona(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	image := strings.TrimSpace(req.Image)
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: "name is required"})
		return
	}

	ctx := c.Request.Context()
	switch {
	case assets.IsDataURI(image):
		url, err := h.rehoster.Rehost(ctx, userID, image, "persona")
		if err != nil {
			respondError(c, err)
			return
		}
		image = url
	case isHTTPSURL(image):
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: "image must be an https URL or a data URI",
		})
		return
	}

	persona := &models.Persona{
		ID:                  uuid.NewString(),
		Name:                name,
		ReferenceImageURL:   image,
		StyleTag:            strings.TrimSpace(req.Style),
		PhysicalDescription: strings.TrimSpace(req.Details),
		OwnerID:             sql.NullString{String: userID, Valid: true},
	}
	if err := h.store.InsertPersona(ctx, persona); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to create persona",
			Message: err.Error(),
		})
		return
	}

	h.logger.Info("persona created", "persona_id", persona.ID, "owner_id", userID)
	c.JSON(http.StatusCreated, models.NewPersonaResponse(persona))
}

// DeletePersona godoc
// @Summary     Delete a persona
// @Description Deletes a persona owned by the caller. System personas cannot be deleted.
// @Tags        personas
// @Security    Bearer
// @Param       persona_id path string true "Persona ID"
// @Success     204
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /personas/{persona_id} [delete]
func (h *PersonasHandler) DeletePersona(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	personaID := c.Param("persona_id")

	persona, err := h.store.GetPersona(ctx, personaID, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "persona not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get persona", Message: err.Error()})
		return
	}
	if persona.IsSystem() {
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "system personas cannot be deleted"})
		return
	}

	if err := h.store.DeletePersona(ctx, personaID, userID); err != nil {
		respondError(c, err)
		return
	}

	h.removeAsset(ctx, userID, persona.ReferenceImageURL)
	c.Status(http.StatusNoContent)
}

// removeAsset deletes an image re-hosted for ownerID. Foreign URLs are left alone.
func (h *PersonasHandler) removeAsset(ctx context.Context, ownerID, publicURL string) {
	if h.remover == nil {
		return
	}
	keys := ownedKeys(h.remover, ownerID, publicURL)
	if len(keys) == 0 {
		return
	}
	if err := h.remover.Remove(ctx, keys); err != nil {
		h.logger.Warn("failed to remove persona image", "keys", keys, "err", err)
	}
}

// isHTTPSURL gates persona references, which the planning client fetches server side.
func isHTTPSURL(s string) bool {
	return strings.HasPrefix(s, "https://")
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
