package models

type CreatePersonaRequest struct {
	Name    string `json:"name" binding:"required" example:"Sophia"`
	Style   string `json:"style,omitempty" example:"Classic elegance"`
	Details string `json:"details,omitempty"`
	// Image is either a public URL or a data URI. Data URIs are re-hosted before storage.
	Image string `json:"image" binding:"required"`
}

type CreateSessionRequest struct {
	PersonaID string `json:"persona_id" binding:"required"`
}

type SelectPersonaRequest struct {
	PersonaID string `json:"persona_id" binding:"required"`
}

type CaptureProductRequest struct {
	// Image is the product photograph as a data URI.
	Image string `json:"image" binding:"required"`
}

type CaptureBriefRequest struct {
	Brief      string `json:"brief"`
	SceneCount int    `json:"scene_count,omitempty" example:"4"`
}

type AddImageRequest struct {
	URL string `json:"url" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
