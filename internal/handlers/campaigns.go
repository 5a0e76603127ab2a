package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/models"
)

type CampaignStore interface {
	ListCampaigns(ctx context.Context, ownerID string) ([]models.Campaign, error)
	GetCampaign(ctx context.Context, campaignID uuid.UUID, ownerID string) (*models.Campaign, error)
	AppendCampaignImage(ctx context.Context, campaignID uuid.UUID, ownerID, url string) (*models.Campaign, error)
	RemoveCampaignImage(ctx context.Context, campaignID uuid.UUID, ownerID string, index int) (*models.Campaign, string, error)
	DeleteCampaign(ctx context.Context, campaignID uuid.UUID, ownerID string) error
}

type CampaignsHandler struct {
	store    CampaignStore
	rehoster AssetRehoster
	remover  AssetRemover
	logger   *slog.Logger
}

func NewCampaignsHandler(store CampaignStore, rehoster AssetRehoster, remover AssetRemover, logger *slog.Logger) *CampaignsHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CampaignsHandler{
		store:    store,
		rehoster: rehoster,
		remover:  remover,
		logger:   logger,
	}
}

// ListCampaigns godoc
// @Summary     List campaigns
// @Description Lists the caller's campaigns, newest first
// @Tags        campaigns
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.CampaignListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /campaigns [get]
func (h *CampaignsHandler) ListCampaigns(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	campaigns, err := h.store.ListCampaigns(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list campaigns",
			Message: err.Error(),
		})
		return
	}

	response := models.CampaignListResponse{Campaigns: make([]models.CampaignSummary, 0, len(campaigns))}
	for _, camp := range campaigns {
		summary := models.CampaignSummary{
			ID:         camp.ID.String(),
			Status:     camp.Status,
			PersonaID:  camp.PersonaID,
			Category:   camp.Product.Category,
			ImageCount: len(camp.RenderedImageURLs),
			CreatedAt:  camp.CreatedAt,
		}
		if len(camp.RenderedImageURLs) > 0 {
			summary.CoverImage = camp.RenderedImageURLs[0]
		}
		response.Campaigns = append(response.Campaigns, summary)
	}
	c.JSON(http.StatusOK, response)
}

// GetCampaign godoc
// @Summary     Get a campaign
// @Tags        campaigns
// @Produce     json
// @Security    Bearer
// @Param       campaign_id path string true "Campaign ID"
// @Success     200 {object} models.CampaignResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /campaigns/{campaign_id} [get]
func (h *CampaignsHandler) GetCampaign(c *gin.Context) {
	userID, campaignID, ok := h.campaignParams(c)
	if !ok {
		return
	}

	camp, err := h.store.GetCampaign(c.Request.Context(), campaignID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewCampaignResponse(camp))
}

// DeleteCampaign godoc
// @Summary     Delete a campaign
// @Tags        campaigns
// @Security    Bearer
// @Param       campaign_id path string true "Campaign ID"
// @Success     204
// @Failure     404 {object} models.ErrorResponse
// @Router      /campaigns/{campaign_id} [delete]
func (h *CampaignsHandler) DeleteCampaign(c *gin.Context) {
	userID, campaignID, ok := h.campaignParams(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	camp, err := h.store.GetCampaign(ctx, campaignID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.DeleteCampaign(ctx, campaignID, userID); err != nil {
		respondError(c, err)
		return
	}

	h.removeAssets(ctx, userID, append(camp.RenderedImageURLs, camp.Product.ImageURL)...)
	h.logger.Info("campaign deleted", "campaign_id", campaignID, "owner_id", userID)
	c.Status(http.StatusNoContent)
}

// DeleteImage godoc
// @Summary     Remove one image from a campaign
// @Tags        campaigns
// @Produce     json
// @Security    Bearer
// @Param       campaign_id path string true "Campaign ID"
// @Param       index path int true "Zero-based image index"
// @Success     200 {object} models.CampaignResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /campaigns/{campaign_id}/images/{index} [delete]
func (h *CampaignsHandler) DeleteImage(c *gin.Context) {
	userID, campaignID, ok := h.campaignParams(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image index"})
		return
	}

	ctx := c.Request.Context()
	camp, removed, err := h.store.RemoveCampaignImage(ctx, campaignID, userID, index)
	if err != nil {
		respondError(c, err)
		return
	}

	h.removeAssets(ctx, userID, removed)
	c.JSON(http.StatusOK, models.NewCampaignResponse(camp))
}

// AddImage godoc
// @Summary     Append an image to a campaign
// @Description Appends a URL to the campaign's images. Inline data URIs are re-hosted first.
// @Tags        campaigns
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       campaign_id path string true "Campaign ID"
// @Param       request body models.AddImageRequest true "Image"
// @Success     200 {object} models.CampaignResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /campaigns/{campaign_id}/images [post]
func (h *CampaignsHandler) AddImage(c *gin.Context) {
	userID, campaignID, ok := h.campaignParams(c)
	if !ok {
		return
	}

	var req models.AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	image := strings.TrimSpace(req.URL)
	if !assets.IsDataURI(image) && !isHTTPURL(image) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: "url must be an http(s) URL or a data URI",
		})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetCampaign(ctx, campaignID, userID); err != nil {
		respondError(c, err)
		return
	}

	if assets.IsDataURI(image) {
		url, err := h.rehoster.Rehost(ctx, userID, image, "campaign")
		if err != nil {
			respondError(c, err)
			return
		}
		image = url
	}

	camp, err := h.store.AppendCampaignImage(ctx, campaignID, userID, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewCampaignResponse(camp))
}

func (h *CampaignsHandler) campaignParams(c *gin.Context) (string, uuid.UUID, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return "", uuid.Nil, false
	}
	campaignID, err := uuid.Parse(c.Param("campaign_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid campaign id"})
		return "", uuid.Nil, false
	}
	return userID, campaignID, true
}

// removeAssets deletes the images this service re-hosted for ownerID. Synthesis,
// catalog and other operators' URLs are skipped.
func (h *CampaignsHandler) removeAssets(ctx context.Context, ownerID string, urls ...string) {
	if h.remover == nil {
		return
	}
	keys := ownedKeys(h.remover, ownerID, urls...)
	if len(keys) == 0 {
		return
	}
	if err := h.remover.Remove(ctx, keys); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("failed to remove campaign images", "keys", keys, "err", err)
	}
}
