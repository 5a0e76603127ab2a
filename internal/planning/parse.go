package planning

import (
	"encoding/json"
	"fmt"
	"strings"

	"luxegen-backend/internal/models"
)

const defaultMotionPrompt = "Slow cinematic camera movement, luxurious ambience, 5s, 4K"

// extractPayload returns the outermost object in text, from the first '{' to the last '}'.
// Models often wrap the object in prose or a fenced block.
func extractPayload(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func parsePlan(text string, sceneCount int) (*models.ShotPlan, error) {
	payload, ok := extractPayload(text)
	if !ok {
		return nil, ErrNoStructuredPayload
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: decode plan: %v", models.ErrPlanningFailed, err)
	}
	return normalizePlan(raw, sceneCount)
}

// normalizePlan trims the plan to sceneCount scenes numbered 1..N in returned order.
// Only the last scene is a packshot, and it carries no motion prompt.
func normalizePlan(raw rawPlan, sceneCount int) (*models.ShotPlan, error) {
	if len(raw.Scenes) < sceneCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTooFewScenes, len(raw.Scenes), sceneCount)
	}

	category, _ := models.ParseCategory(strings.ToLower(strings.TrimSpace(raw.ProductType)))

	scenes := make([]models.Scene, sceneCount)
	for i, rs := range raw.Scenes[:sceneCount] {
		prompt := strings.TrimSpace(rs.PromptImage)
		if prompt == "" {
			return nil, fmt.Errorf("%w: scene %d has no image prompt", models.ErrPlanningFailed, i+1)
		}

		last := i == sceneCount-1
		motion := strings.TrimSpace(rs.PromptVideo)
		switch {
		case last:
			motion = ""
		case motion == "":
			motion = defaultMotionPrompt
		}

		title := strings.TrimSpace(rs.Title)
		if title == "" {
			title = fmt.Sprintf("Scene %d", i+1)
		}

		scenes[i] = models.Scene{
			SequenceNumber:  i + 1,
			Title:           title,
			SynthesisPrompt: prompt,
			MotionPrompt:    motion,
			IsFinalPackshot: last,
		}
	}

	return &models.ShotPlan{Category: category, Scenes: scenes}, nil
}
