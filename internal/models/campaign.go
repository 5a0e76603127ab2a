package models

import (
	"time"

	"github.com/google/uuid"
)

type ProductCategory string

const (
	CategoryBag       ProductCategory = "bag"
	CategoryShoe      ProductCategory = "shoe"
	CategoryDress     ProductCategory = "dress"
	CategoryJewelry   ProductCategory = "jewelry"
	CategoryWatch     ProductCategory = "watch"
	CategoryGlasses   ProductCategory = "glasses"
	CategoryAccessory ProductCategory = "accessory"
)

// Categories lists every product category in catalog order.
func Categories() []ProductCategory {
	return []ProductCategory{
		CategoryBag,
		CategoryShoe,
		CategoryDress,
		CategoryJewelry,
		CategoryWatch,
		CategoryGlasses,
		CategoryAccessory,
	}
}

// ParseCategory returns the category for a planner tag. Unknown tags map to accessory.
func ParseCategory(tag string) (ProductCategory, bool) {
	for _, c := range Categories() {
		if string(c) == tag {
			return c, true
		}
	}
	return CategoryAccessory, false
}

type CampaignStatus string

const (
	CampaignDraft      CampaignStatus = "draft"
	CampaignGenerating CampaignStatus = "generating"
	CampaignCompleted  CampaignStatus = "completed"
)

// Product is the photographed item a campaign is built around.
// Image holds the inline data URI captured from the operator; ImageURL is
// where it was re-hosted for synthesis.
type Product struct {
	ID       string          `json:"id"`
	Image    string          `json:"image"`
	ImageURL string          `json:"image_url,omitempty"`
	Category ProductCategory `json:"type"`
}

// Scene is one planned advertising shot.
type Scene struct {
	SequenceNumber  int    `json:"id"`
	Title           string `json:"title"`
	SynthesisPrompt string `json:"prompt_image"`
	MotionPrompt    string `json:"prompt_video"`
	IsFinalPackshot bool   `json:"isPackshot"`
}

// ShotPlan is the ordered shot list returned by the planning service.
type ShotPlan struct {
	Category ProductCategory `json:"productType"`
	Scenes   []Scene         `json:"scenes"`
}

type Campaign struct {
	ID                uuid.UUID
	OwnerID           string
	Status            CampaignStatus
	PersonaID         string
	Product           Product
	Scenes            []Scene
	RenderedImageURLs []string
	CreatedAt         time.Time
}
