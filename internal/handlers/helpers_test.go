package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/campaign"
	"luxegen-backend/internal/fallback"
	"luxegen-backend/internal/handlers"
	"luxegen-backend/internal/models"
	"luxegen-backend/internal/planning"
)

const (
	jwtSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"
	userID    = "user-123"
	otherUser = "user-456"
	redBag    = "data:image/jpeg;base64,/9j/4AAQSkZJRgABAQ=="
	assetBase = "https://storage.example/public/"
)

// --- fakes ---

type memoryPersonas struct {
	mu       sync.Mutex
	personas map[string]models.Persona
}

func newMemoryPersonas(ps ...models.Persona) *memoryPersonas {
	m := &memoryPersonas{personas: map[string]models.Persona{}}
	for _, p := range ps {
		m.personas[p.ID] = p
	}
	return m
}

func (m *memoryPersonas) visible(p models.Persona, ownerID string) bool {
	return p.IsSystem() || p.OwnerID.String == ownerID
}

func (m *memoryPersonas) ListPersonas(_ context.Context, ownerID string) ([]models.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Persona
	for _, p := range m.personas {
		if m.visible(p, ownerID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryPersonas) GetPersona(_ context.Context, personaID, ownerID string) (*models.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personas[personaID]
	if !ok || !m.visible(p, ownerID) {
		return nil, fmt.Errorf("persona %s: %w", personaID, models.ErrNotFound)
	}
	return &p, nil
}

func (m *memoryPersonas) InsertPersona(_ context.Context, p *models.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = time.Now()
	m.personas[p.ID] = *p
	return nil
}

func (m *memoryPersonas) DeletePersona(_ context.Context, personaID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personas[personaID]
	if !ok || p.IsSystem() || p.OwnerID.String != ownerID {
		return fmt.Errorf("persona %s: %w", personaID, models.ErrNotFound)
	}
	delete(m.personas, personaID)
	return nil
}

type memoryCampaigns struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]models.Campaign
	insertErr error
}

func newMemoryCampaigns(cs ...models.Campaign) *memoryCampaigns {
	m := &memoryCampaigns{campaigns: map[uuid.UUID]models.Campaign{}}
	for _, c := range cs {
		m.campaigns[c.ID] = c
	}
	return m
}

func (m *memoryCampaigns) InsertCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.campaigns[c.ID] = *c
	return nil
}

func (m *memoryCampaigns) ListCampaigns(_ context.Context, ownerID string) ([]models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Campaign
	for _, c := range m.campaigns {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryCampaigns) GetCampaign(_ context.Context, id uuid.UUID, ownerID string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return nil, fmt.Errorf("campaign %s: %w", id, models.ErrNotFound)
	}
	c.RenderedImageURLs = append([]string(nil), c.RenderedImageURLs...)
	return &c, nil
}

func (m *memoryCampaigns) AppendCampaignImage(_ context.Context, id uuid.UUID, ownerID, url string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return nil, fmt.Errorf("campaign %s: %w", id, models.ErrNotFound)
	}
	c.RenderedImageURLs = append(append([]string(nil), c.RenderedImageURLs...), url)
	m.campaigns[id] = c
	return &c, nil
}

func (m *memoryCampaigns) RemoveCampaignImage(_ context.Context, id uuid.UUID, ownerID string, index int) (*models.Campaign, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return nil, "", fmt.Errorf("campaign %s: %w", id, models.ErrNotFound)
	}
	if index < 0 || index >= len(c.RenderedImageURLs) {
		return nil, "", models.ErrImageIndexOutOfRange
	}
	removed := c.RenderedImageURLs[index]
	urls := append([]string(nil), c.RenderedImageURLs[:index]...)
	c.RenderedImageURLs = append(urls, c.RenderedImageURLs[index+1:]...)
	m.campaigns[id] = c
	return &c, removed, nil
}

func (m *memoryCampaigns) get(id uuid.UUID) models.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.campaigns[id]
}

func (m *memoryCampaigns) DeleteCampaign(_ context.Context, id uuid.UUID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return fmt.Errorf("campaign %s: %w", id, models.ErrNotFound)
	}
	delete(m.campaigns, id)
	return nil
}

func (m *memoryCampaigns) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.campaigns)
}

type fakeAssets struct {
	mu      sync.Mutex
	err     error
	n       int
	removed []string
}

func (f *fakeAssets) Rehost(_ context.Context, ownerID, _ string, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.n++
	return ownedAsset(ownerID, fmt.Sprintf("%s_%d.jpg", prefix, f.n)), nil
}

// ownedAsset is the public URL of an object re-hosted for ownerID.
func ownedAsset(ownerID, name string) string {
	return assetBase + assets.OwnerKeyPrefix(ownerID) + name
}

func (f *fakeAssets) removedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func (f *fakeAssets) KeyFromPublicURL(u string) (string, bool) {
	if !strings.HasPrefix(u, assetBase) {
		return "", false
	}
	return strings.TrimPrefix(u, assetBase), true
}

func (f *fakeAssets) Remove(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, keys...)
	return nil
}

type stubPlanner struct {
	err error
}

func (s stubPlanner) Plan(_ context.Context, _ string, req planning.Request) (*models.ShotPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	scenes := make([]models.Scene, req.SceneCount)
	for i := range scenes {
		last := i == req.SceneCount-1
		scenes[i] = models.Scene{SequenceNumber: i + 1, Title: "t", SynthesisPrompt: "p", IsFinalPackshot: last}
		if !last {
			scenes[i].MotionPrompt = "pan"
		}
	}
	return &models.ShotPlan{Category: models.CategoryBag, Scenes: scenes}, nil
}

type stubSynthesizer struct {
	url string
}

func (s stubSynthesizer) Generate(context.Context, string, string, []string) (string, error) {
	if s.url == "" {
		return "", models.ErrSynthesisEmpty
	}
	return s.url, nil
}

type staticSecrets struct{}

func (staticSecrets) GetSecret(_ context.Context, provider string) (string, error) {
	return provider + "-key", nil
}

// --- environment ---

var sophia = models.Persona{ID: "m1", Name: "Sophia", ReferenceImageURL: "https://images.example/m1.jpg"}

type env struct {
	router    *gin.Engine
	personas  *memoryPersonas
	campaigns *memoryCampaigns
	assets    *fakeAssets
	sessions  *campaign.SessionStore
	orch      *campaign.Orchestrator
}

type envOptions struct {
	planner     campaign.Planner
	synthesizer campaign.Synthesizer
}

func newEnv(t *testing.T, opts envOptions) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if opts.planner == nil {
		opts.planner = stubPlanner{}
	}
	if opts.synthesizer == nil {
		opts.synthesizer = stubSynthesizer{url: "https://fal.example/out.png"}
	}

	e := &env{
		personas:  newMemoryPersonas(sophia),
		campaigns: newMemoryCampaigns(),
		assets:    &fakeAssets{},
		sessions:  campaign.NewSessionStore(4),
	}
	e.orch = campaign.NewOrchestrator(campaign.Deps{
		Planner:     opts.planner,
		Synthesizer: opts.synthesizer,
		Rehoster:    e.assets,
		Catalog:     fallback.New(),
		Store:       e.campaigns,
		Secrets:     staticSecrets{},
	})

	e.router = handlers.NewRouter(handlers.RouterConfig{
		JWTSecret: jwtSecret,
		Health:    handlers.NewHealthHandler(nil),
		Personas:  handlers.NewPersonasHandler(e.personas, e.assets, e.assets, nil),
		Campaigns: handlers.NewCampaignsHandler(e.campaigns, e.assets, e.assets, nil),
		Studio:    handlers.NewStudioHandler(e.sessions, e.orch, e.personas, nil),
	})
	return e
}

func token(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func (e *env) do(t *testing.T, method, path, sub string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sub != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, sub))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
