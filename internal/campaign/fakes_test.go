package campaign_test

import (
	"context"
	"fmt"
	"sync"

	"luxegen-backend/internal/models"
	"luxegen-backend/internal/planning"
)

const (
	redBag   = "data:image/jpeg;base64,/9j/4AAQSkZJRgABAQ=="
	ownerID  = "owner-1"
	sophiaID = "m1"
)

var sophia = models.Persona{
	ID:                  sophiaID,
	Name:                "Sophia",
	ReferenceImageURL:   "https://images.example/sophia.jpg",
	StyleTag:            "Editorial",
	PhysicalDescription: "auburn hair, green eyes",
}

func makePlan(category models.ProductCategory, n int) *models.ShotPlan {
	scenes := make([]models.Scene, n)
	for i := range scenes {
		last := i == n-1
		scenes[i] = models.Scene{
			SequenceNumber:  i + 1,
			Title:           fmt.Sprintf("Scene %d", i+1),
			SynthesisPrompt: fmt.Sprintf("prompt %d", i+1),
			IsFinalPackshot: last,
		}
		if !last {
			scenes[i].MotionPrompt = "slow pan"
		}
	}
	return &models.ShotPlan{Category: category, Scenes: scenes}
}

type fakePlanner struct {
	mu      sync.Mutex
	calls   int
	lastKey string
	lastReq planning.Request
	plan    func(req planning.Request) (*models.ShotPlan, error)
}

func (f *fakePlanner) Plan(_ context.Context, apiKey string, req planning.Request) (*models.ShotPlan, error) {
	f.mu.Lock()
	f.calls++
	f.lastKey = apiKey
	f.lastReq = req
	f.mu.Unlock()
	return f.plan(req)
}

func (f *fakePlanner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type synthResult struct {
	url string
	err error
}

type fakeSynthesizer struct {
	results []synthResult
	calls   int
	prompts []string
	refs    [][]string
	keys    []string
}

func (f *fakeSynthesizer) Generate(_ context.Context, apiKey, prompt string, imageURLs []string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.refs = append(f.refs, append([]string(nil), imageURLs...))
	f.keys = append(f.keys, apiKey)
	if i >= len(f.results) {
		return "", models.ErrSynthesisEmpty
	}
	return f.results[i].url, f.results[i].err
}

type fakeRehoster struct {
	calls   []string
	owners  []string
	failFor map[string]error
	urlFor  func(prefix string) string
}

func (f *fakeRehoster) Rehost(_ context.Context, owner, _ string, prefix string) (string, error) {
	f.calls = append(f.calls, prefix)
	f.owners = append(f.owners, owner)
	if err := f.failFor[prefix]; err != nil {
		return "", err
	}
	if f.urlFor != nil {
		return f.urlFor(prefix), nil
	}
	return "https://storage.example/" + prefix + ".jpg", nil
}

type fakeStore struct {
	err      error
	inserted []*models.Campaign
}

func (f *fakeStore) InsertCampaign(_ context.Context, c *models.Campaign) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, c)
	return nil
}

type fakeSecrets struct {
	values  map[string]string
	err     error
	lookups []string
}

func (f *fakeSecrets) GetSecret(_ context.Context, provider string) (string, error) {
	f.lookups = append(f.lookups, provider)
	if f.err != nil {
		return "", f.err
	}
	return f.values[provider], nil
}

type publishedEvent struct {
	campaignID string
	event      string
	payload    map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingPublisher) Publish(_ context.Context, campaignID, event string, payload map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{campaignID, event, payload})
	return nil
}

func (r *recordingPublisher) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}
