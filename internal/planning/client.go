package planning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/httpclient"
	"luxegen-backend/internal/models"
	"luxegen-backend/internal/observability"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	defaultModel      = "gemini-3-pro-preview"

	maxReferenceBytes = 20 << 20
	referenceTimeout  = 30 * time.Second
)

var (
	ErrMissingAPIKey       = fmt.Errorf("%w: planning api key not configured", models.ErrPlanningFailed)
	ErrNoStructuredPayload = fmt.Errorf("%w: response carried no structured plan", models.ErrPlanningFailed)
	ErrTooFewScenes        = fmt.Errorf("%w: plan has fewer scenes than requested", models.ErrPlanningFailed)
)

type Options struct {
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	// ReferenceClient fetches persona reference URLs. Defaults to a client
	// that only dials public addresses.
	ReferenceClient *http.Client
	Logger          *slog.Logger
}

// Client asks a multimodal Gemini model for a shot plan.
type Client struct {
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	refClient  *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 180 * time.Second}
	}
	refClient := opts.ReferenceClient
	if refClient == nil {
		refClient = httpclient.New(httpclient.Options{
			Timeout:    referenceTimeout,
			PublicOnly: true,
			HTTPSOnly:  true,
		})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: httpClient,
		refClient:  refClient,
		logger:     logger,
	}
}

// Plan returns a normalized shot plan with exactly req.SceneCount scenes.
// Every error wraps models.ErrPlanningFailed.
func (c *Client) Plan(ctx context.Context, apiKey string, req Request) (*models.ShotPlan, error) {
	if strings.TrimSpace(apiKey) == "" {
		observability.PlanningRequests.WithLabelValues("unconfigured").Inc()
		return nil, ErrMissingAPIKey
	}
	if req.SceneCount < 1 {
		return nil, fmt.Errorf("%w: scene count must be positive", models.ErrPlanningFailed)
	}

	parts := []part{{Text: BuildInstruction(req)}}

	product, ok := inlineFromDataURI(req.ProductImage)
	if !ok {
		return nil, fmt.Errorf("%w: product image is not a data uri", models.ErrPlanningFailed)
	}
	parts = append(parts, part{InlineData: &product})

	if persona, ok := c.personaReference(ctx, req.PersonaImage); ok {
		parts = append(parts, part{InlineData: &persona})
	}

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 4096,
		},
	}

	start := time.Now()
	text, err := c.generateContent(ctx, apiKey, payload)
	observability.ExternalCallDuration.WithLabelValues("planning").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.PlanningRequests.WithLabelValues("error").Inc()
		c.logger.Warn("planning request failed", "model", c.model, "duration", time.Since(start), "err", err)
		return nil, err
	}

	plan, err := parsePlan(text, req.SceneCount)
	if err != nil {
		observability.PlanningRequests.WithLabelValues("invalid").Inc()
		c.logger.Warn("planning response rejected", "model", c.model, "err", err)
		return nil, err
	}

	observability.PlanningRequests.WithLabelValues("ok").Inc()
	c.logger.Info("plan received",
		"model", c.model,
		"category", plan.Category,
		"scenes", len(plan.Scenes),
		"duration", time.Since(start),
	)
	return plan, nil
}

func (c *Client) generateContent(ctx context.Context, apiKey string, payload generateContentRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", models.ErrPlanningFailed, err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", models.ErrPlanningFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: request: %v", models.ErrPlanningFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", models.ErrPlanningFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: gemini API %s: %s", models.ErrPlanningFailed, resp.Status, strings.TrimSpace(string(raw)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", models.ErrPlanningFailed, err)
	}

	text := extractText(decoded)
	if strings.TrimSpace(text) == "" {
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", models.ErrPlanningFailed, decoded.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: empty response", models.ErrPlanningFailed)
	}
	return text, nil
}

// personaReference resolves the persona image to inline data. A URL is fetched;
// any failure drops the reference and planning continues from the description.
func (c *Client) personaReference(ctx context.Context, ref string) (blob, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return blob{}, false
	}
	if assets.IsDataURI(ref) {
		return inlineFromDataURI(ref)
	}

	b, err := c.fetchImage(ctx, ref)
	if err != nil {
		c.logger.Warn("persona reference unavailable, planning from description only", "url", ref, "err", err)
		return blob{}, false
	}
	return b, true
}

func (c *Client) fetchImage(ctx context.Context, url string) (blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return blob{}, fmt.Errorf("create request: %w", err)
	}
	if req.URL.Scheme != "https" {
		return blob{}, fmt.Errorf("reference url must be https, got %q", req.URL.Scheme)
	}
	resp, err := c.refClient.Do(req)
	if err != nil {
		return blob{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return blob{}, fmt.Errorf("fetch: status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
	if err != nil {
		return blob{}, fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		return blob{}, errors.New("empty body")
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(mime)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}

	return blob{MimeType: mime, Data: base64.StdEncoding.EncodeToString(data)}, nil
}

func inlineFromDataURI(uri string) (blob, bool) {
	data, mime, err := assets.DecodeDataURI(uri)
	if err != nil || len(data) == 0 {
		return blob{}, false
	}
	return blob{MimeType: mime, Data: base64.StdEncoding.EncodeToString(data)}, true
}

func extractText(resp generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
