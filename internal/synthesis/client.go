package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"luxegen-backend/internal/models"
	"luxegen-backend/internal/observability"
)

const (
	DefaultEndpoint  = "https://fal.run/fal-ai/bytedance/seedream/v4.5/edit"
	DefaultImageSize = "auto_2K"
)

var (
	ErrMissingAPIKey = fmt.Errorf("%w: synthesis api key not configured", models.ErrSynthesisEmpty)
	ErrRequestFailed = fmt.Errorf("%w: synthesis request failed", models.ErrSynthesisEmpty)
	ErrEmptyResult   = fmt.Errorf("%w: synthesis returned no images", models.ErrSynthesisEmpty)
)

type EditRequest struct {
	Prompt              string   `json:"prompt"`
	ImageURLs           []string `json:"image_urls"`
	ImageSize           string   `json:"image_size"`
	NumImages           int      `json:"num_images"`
	EnableSafetyChecker bool     `json:"enable_safety_checker"`
}

type EditResponse struct {
	Images []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"images"`
	Seed int64 `json:"seed"`
}

type Options struct {
	Endpoint   string
	ImageSize  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client renders one image per call through the Seedream edit endpoint on fal.ai.
type Client struct {
	endpoint   string
	imageSize  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(opts Options) *Client {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	size := strings.TrimSpace(opts.ImageSize)
	if size == "" {
		size = DefaultImageSize
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 180 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		endpoint:   endpoint,
		imageSize:  size,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Generate renders prompt against the reference images and returns the URL of the first result.
// Every error wraps models.ErrSynthesisEmpty.
func (c *Client) Generate(ctx context.Context, apiKey, prompt string, imageURLs []string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		observability.SynthesisScenes.WithLabelValues("unconfigured").Inc()
		return "", ErrMissingAPIKey
	}

	start := time.Now()
	url, err := c.edit(ctx, apiKey, EditRequest{
		Prompt:              prompt,
		ImageURLs:           imageURLs,
		ImageSize:           c.imageSize,
		NumImages:           1,
		EnableSafetyChecker: false,
	})
	observability.ExternalCallDuration.WithLabelValues("synthesis").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.SynthesisScenes.WithLabelValues("error").Inc()
		c.logger.Warn("synthesis failed", "references", len(imageURLs), "duration", time.Since(start), "err", err)
		return "", err
	}

	observability.SynthesisScenes.WithLabelValues("ok").Inc()
	c.logger.Info("scene rendered", "references", len(imageURLs), "duration", time.Since(start))
	return url, nil
}

func (c *Client) edit(ctx context.Context, apiKey string, payload EditRequest) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Key "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d, body: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result EditResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}

	if len(result.Images) == 0 || strings.TrimSpace(result.Images[0].URL) == "" {
		return "", ErrEmptyResult
	}
	return result.Images[0].URL, nil
}
