package models

import "time"

type PersonaResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	ReferenceImageURL string    `json:"image"`
	Style             string    `json:"style"`
	Details           string    `json:"details"`
	System            bool      `json:"system"`
	CreatedAt         time.Time `json:"created_at"`
}

type PersonaListResponse struct {
	Personas []PersonaResponse `json:"personas"`
}

type ProductResponse struct {
	ID       string          `json:"id"`
	Category ProductCategory `json:"type"`
}

type CampaignResponse struct {
	ID                string          `json:"campaign_id"`
	Status            CampaignStatus  `json:"status"`
	PersonaID         string          `json:"persona_id"`
	Product           ProductResponse `json:"product"`
	Scenes            []Scene         `json:"scenes"`
	RenderedImageURLs []string        `json:"generated_images"`
	CreatedAt         time.Time       `json:"created_at"`
}

type CampaignSummary struct {
	ID         string          `json:"campaign_id"`
	Status     CampaignStatus  `json:"status"`
	PersonaID  string          `json:"persona_id"`
	Category   ProductCategory `json:"product_type"`
	CoverImage string          `json:"cover_image,omitempty"`
	ImageCount int             `json:"image_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CampaignListResponse struct {
	Campaigns []CampaignSummary `json:"campaigns"`
}

type SceneOutcomeResponse struct {
	SequenceNumber int    `json:"id"`
	URL            string `json:"url"`
	Placeholder    bool   `json:"placeholder"`
	Error          string `json:"error,omitempty"`
}

type SessionResponse struct {
	SessionID       string                 `json:"session_id"`
	State           string                 `json:"state"`
	PersonaID       string                 `json:"persona_id"`
	HasProduct      bool                   `json:"has_product"`
	Brief           string                 `json:"brief"`
	SceneCount      int                    `json:"scene_count"`
	Plan            *ShotPlan              `json:"plan,omitempty"`
	Campaign        *CampaignResponse      `json:"campaign,omitempty"`
	SceneOutcomes   []SceneOutcomeResponse `json:"scene_outcomes,omitempty"`
	CatalogFallback bool                   `json:"catalog_fallback,omitempty"`
	LastError       string                 `json:"last_error,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewCampaignResponse(c *Campaign) CampaignResponse {
	urls := c.RenderedImageURLs
	if urls == nil {
		urls = []string{}
	}
	return CampaignResponse{
		ID:        c.ID.String(),
		Status:    c.Status,
		PersonaID: c.PersonaID,
		Product: ProductResponse{
			ID:       c.Product.ID,
			Category: c.Product.Category,
		},
		Scenes:            c.Scenes,
		RenderedImageURLs: urls,
		CreatedAt:         c.CreatedAt,
	}
}

func NewPersonaResponse(p *Persona) PersonaResponse {
	return PersonaResponse{
		ID:                p.ID,
		Name:              p.Name,
		ReferenceImageURL: p.ReferenceImageURL,
		Style:             p.StyleTag,
		Details:           p.PhysicalDescription,
		System:            p.IsSystem(),
		CreatedAt:         p.CreatedAt,
	}
}
