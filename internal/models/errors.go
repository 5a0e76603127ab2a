package models

import "errors"

// Error kinds surfaced to the campaign orchestrator. Component errors wrap one of these.
var (
	ErrPlanningFailed    = errors.New("planning failed")
	ErrAssetUploadFailed = errors.New("asset upload failed")
	ErrSynthesisEmpty    = errors.New("synthesis returned no image")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrNotFound          = errors.New("record not found")

	ErrImageIndexOutOfRange = errors.New("image index out of range")
)
