package events

import "luxegen-backend/internal/models"

func SynthesisStartedPayload(campaignID string, sceneCount int) map[string]interface{} {
	return map[string]interface{}{
		"campaign_id": campaignID,
		"status":      string(models.CampaignGenerating),
		"scene_count": sceneCount,
	}
}

func CampaignCompletedPayload(c *models.Campaign, rendered int, catalogFallback bool) map[string]interface{} {
	return map[string]interface{}{
		"campaign_id":      c.ID.String(),
		"owner_id":         c.OwnerID,
		"status":           string(c.Status),
		"product_type":     string(c.Product.Category),
		"image_count":      len(c.RenderedImageURLs),
		"rendered_count":   rendered,
		"catalog_fallback": catalogFallback,
	}
}

func CampaignFailedPayload(campaignID string, err error) map[string]interface{} {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return map[string]interface{}{
		"campaign_id": campaignID,
		"status":      "failed",
		"error":       msg,
	}
}
