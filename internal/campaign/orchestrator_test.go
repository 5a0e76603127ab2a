package campaign_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxegen-backend/internal/campaign"
	"luxegen-backend/internal/events"
	"luxegen-backend/internal/fallback"
	"luxegen-backend/internal/models"
	"luxegen-backend/internal/planning"
)

var fixedNow = time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

type harness struct {
	planner  *fakePlanner
	synth    *fakeSynthesizer
	rehoster *fakeRehoster
	store    *fakeStore
	secrets  *fakeSecrets
	events   *recordingPublisher
	orch     *campaign.Orchestrator
	id       uuid.UUID
}

func newHarness(category models.ProductCategory) *harness {
	h := &harness{
		planner: &fakePlanner{plan: func(req planning.Request) (*models.ShotPlan, error) {
			return makePlan(category, req.SceneCount), nil
		}},
		synth:    &fakeSynthesizer{},
		rehoster: &fakeRehoster{},
		store:    &fakeStore{},
		secrets:  &fakeSecrets{values: map[string]string{"gemini": "g-key", "seedream": "s-key"}},
		events:   &recordingPublisher{},
		id:       uuid.MustParse("7d1c5a8e-0f0b-4f5e-9b4a-1d2c3e4f5a6b"),
	}
	h.orch = campaign.NewOrchestrator(campaign.Deps{
		Planner:     h.planner,
		Synthesizer: h.synth,
		Rehoster:    h.rehoster,
		Catalog:     fallback.New(),
		Store:       h.store,
		Secrets:     h.secrets,
		Events:      h.events,
		Now:         func() time.Time { return fixedNow },
		NewID:       func() uuid.UUID { return h.id },
	})
	return h
}

func briefed(t *testing.T, brief string, n int) *campaign.Workflow {
	t.Helper()
	wf := newWorkflow(t)
	require.NoError(t, wf.CaptureProduct(redBag))
	require.NoError(t, wf.CaptureBrief(brief, n))
	return wf
}

func approved(t *testing.T, h *harness, n int) *campaign.Workflow {
	t.Helper()
	wf := briefed(t, "Paris at dusk", n)
	_, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)
	require.NoError(t, h.orch.ApprovePlan(wf))
	return wf
}

func TestRequestPlan_Success(t *testing.T) {
	h := newHarness(models.CategoryBag)
	wf := briefed(t, "Paris at dusk", 4)

	plan, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)

	assert.Equal(t, "g-key", h.planner.lastKey)
	assert.Equal(t, redBag, h.planner.lastReq.ProductImage)
	assert.Equal(t, sophia.ReferenceImageURL, h.planner.lastReq.PersonaImage)
	assert.Equal(t, sophia.PhysicalDescription, h.planner.lastReq.PersonaDescription)
	assert.Equal(t, "Paris at dusk", h.planner.lastReq.Brief)
	assert.Equal(t, 4, h.planner.lastReq.SceneCount)

	require.Len(t, plan.Scenes, 4)
	assert.True(t, plan.Scenes[3].IsFinalPackshot)
	assert.Empty(t, plan.Scenes[3].MotionPrompt)

	snap := wf.Snapshot()
	assert.Equal(t, campaign.StatePlanReady, snap.State)
	assert.Equal(t, models.CategoryBag, snap.Product.Category)
	assert.Equal(t, plan.Scenes, snap.Plan.Scenes)
}

func TestRequestPlan_FailureReturnsToBrief(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.planner.plan = func(planning.Request) (*models.ShotPlan, error) {
		return nil, planning.ErrNoStructuredPayload
	}
	wf := briefed(t, "Paris at dusk", 4)

	plan, err := h.orch.RequestPlan(context.Background(), wf)
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, models.ErrPlanningFailed)

	snap := wf.Snapshot()
	assert.Equal(t, campaign.StateBriefCaptured, snap.State)
	assert.Nil(t, snap.Plan)
	assert.ErrorIs(t, snap.LastError, models.ErrPlanningFailed)
}

func TestRequestPlan_SecretLookupFailure(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.secrets.err = errors.New("connection refused")
	wf := briefed(t, "", 4)

	_, err := h.orch.RequestPlan(context.Background(), wf)
	assert.ErrorIs(t, err, models.ErrPlanningFailed)
	assert.Equal(t, 0, h.planner.Calls())
	assert.Equal(t, campaign.StateBriefCaptured, wf.State())
}

func TestRequestPlan_MalformedPlanRejected(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.planner.plan = func(req planning.Request) (*models.ShotPlan, error) {
		p := makePlan(models.CategoryBag, req.SceneCount)
		p.Scenes[0].IsFinalPackshot = true
		return p, nil
	}
	wf := briefed(t, "", 4)

	_, err := h.orch.RequestPlan(context.Background(), wf)
	assert.ErrorIs(t, err, models.ErrPlanningFailed)
	assert.Nil(t, wf.Snapshot().Plan)
}

func TestRequestPlan_WrongState(t *testing.T) {
	h := newHarness(models.CategoryBag)
	wf := newWorkflow(t)

	_, err := h.orch.RequestPlan(context.Background(), wf)
	assert.ErrorIs(t, err, campaign.ErrInvalidTransition)
	assert.Equal(t, 0, h.planner.Calls())
}

func TestRequestPlan_ConcurrentTriggerIsBusy(t *testing.T) {
	h := newHarness(models.CategoryBag)
	release := make(chan struct{})
	h.planner.plan = func(req planning.Request) (*models.ShotPlan, error) {
		<-release
		return makePlan(models.CategoryBag, req.SceneCount), nil
	}
	wf := briefed(t, "Paris at dusk", 4)

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.RequestPlan(context.Background(), wf)
		done <- err
	}()

	require.Eventually(t, func() bool { return wf.State() == campaign.StatePlanPending }, time.Second, 5*time.Millisecond)

	_, err := h.orch.RequestPlan(context.Background(), wf)
	assert.ErrorIs(t, err, campaign.ErrBusy)
	assert.ErrorIs(t, wf.Reset(), campaign.ErrBusy)
	assert.ErrorIs(t, wf.CaptureBrief("other", 2), campaign.ErrInvalidTransition)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.planner.Calls())
	assert.Equal(t, campaign.StatePlanReady, wf.State())
}

func TestRejectThenReplan(t *testing.T) {
	h := newHarness(models.CategoryWatch)
	wf := briefed(t, "Paris at dusk", 4)

	first, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)

	require.NoError(t, h.orch.RejectPlan(wf))
	assert.Equal(t, campaign.StateBriefCaptured, wf.State())
	assert.Nil(t, wf.Snapshot().Plan)

	h.planner.plan = func(req planning.Request) (*models.ShotPlan, error) {
		p := makePlan(models.CategoryWatch, req.SceneCount)
		p.Scenes[0].Title = "A different opening"
		return p, nil
	}
	second, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)

	assert.NotEqual(t, first.Scenes[0].Title, second.Scenes[0].Title)
	require.Len(t, second.Scenes, 4)
	for i, s := range second.Scenes {
		assert.Equal(t, i+1, s.SequenceNumber)
		assert.Equal(t, i == 3, s.IsFinalPackshot)
	}
}

func TestRunSynthesis_RequiresApproval(t *testing.T) {
	h := newHarness(models.CategoryBag)
	wf := briefed(t, "Paris at dusk", 4)
	_, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)

	_, err = h.orch.RunSynthesis(context.Background(), wf)
	assert.ErrorIs(t, err, campaign.ErrInvalidTransition)
	assert.Empty(t, h.rehoster.calls)
}

func TestRunSynthesis_AllScenesRendered(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.synth.results = []synthResult{
		{url: "https://fal.example/1.png"},
		{url: "https://fal.example/2.png"},
		{url: "https://fal.example/3.png"},
		{url: "https://fal.example/4.png"},
	}
	wf := approved(t, h, 4)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)

	require.Len(t, h.store.inserted, 1)
	c := h.store.inserted[0]
	assert.Equal(t, h.id, c.ID)
	assert.Equal(t, ownerID, c.OwnerID)
	assert.Equal(t, sophiaID, c.PersonaID)
	assert.Equal(t, models.CampaignCompleted, c.Status)
	assert.Equal(t, models.CategoryBag, c.Product.Category)
	assert.Equal(t, "https://storage.example/product.jpg", c.Product.ImageURL)
	assert.Equal(t, fixedNow, c.CreatedAt)
	assert.Equal(t, []string{
		"https://fal.example/1.png",
		"https://fal.example/2.png",
		"https://fal.example/3.png",
		"https://fal.example/4.png",
	}, c.RenderedImageURLs)
	assert.Len(t, c.Scenes, 4)

	assert.Equal(t, []string{"prompt 1", "prompt 2", "prompt 3", "prompt 4"}, h.synth.prompts)
	for _, refs := range h.synth.refs {
		assert.Equal(t, []string{"https://storage.example/product.jpg", sophia.ReferenceImageURL}, refs)
	}
	assert.Equal(t, []string{"s-key", "s-key", "s-key", "s-key"}, h.synth.keys)
	assert.Equal(t, []string{"product"}, h.rehoster.calls)
	assert.Equal(t, []string{ownerID}, h.rehoster.owners)

	assert.Equal(t, 4, report.Rendered)
	assert.False(t, report.CatalogFallback)

	snap := wf.Snapshot()
	assert.Equal(t, campaign.StateCompleted, snap.State)
	assert.Same(t, c, snap.Campaign)
	assert.Equal(t, []string{events.EventSynthesisStarted, events.EventCompleted}, h.events.names())
}

func TestRunSynthesis_RedBagParisPartialFailure(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.synth.results = []synthResult{
		{url: "https://fal.example/1.png"},
		{url: "https://fal.example/2.png"},
		{url: "https://fal.example/3.png"},
		{err: models.ErrSynthesisEmpty},
	}
	wf := approved(t, h, 4)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)

	c := h.store.inserted[0]
	require.Len(t, c.RenderedImageURLs, 4)
	assert.Equal(t, "https://fal.example/1.png", c.RenderedImageURLs[0])
	assert.Equal(t, "https://fal.example/2.png", c.RenderedImageURLs[1])
	assert.Equal(t, "https://fal.example/3.png", c.RenderedImageURLs[2])
	assert.Equal(t, fallback.New().Placeholder(models.CategoryBag, 3), c.RenderedImageURLs[3])

	assert.Equal(t, 3, report.Rendered)
	assert.False(t, report.CatalogFallback)
	assert.True(t, report.Scenes[3].Placeholder)
	assert.ErrorIs(t, report.Scenes[3].Err, models.ErrSynthesisEmpty)
	assert.False(t, report.Scenes[0].Placeholder)
}

func TestRunSynthesis_EmptyURLCountsAsFailure(t *testing.T) {
	h := newHarness(models.CategoryDress)
	h.synth.results = []synthResult{{url: "https://fal.example/1.png"}, {url: ""}}
	wf := approved(t, h, 2)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rendered)
	assert.True(t, report.Scenes[1].Placeholder)
}

func TestRunSynthesis_ShoeAllFailuresUsesCatalog(t *testing.T) {
	h := newHarness(models.CategoryShoe)
	h.synth.results = []synthResult{
		{err: errors.New("dial tcp: connection refused")},
		{err: errors.New("dial tcp: connection refused")},
		{err: errors.New("dial tcp: connection refused")},
		{err: errors.New("dial tcp: connection refused")},
	}
	wf := approved(t, h, 4)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)

	c := h.store.inserted[0]
	assert.Equal(t, fallback.New().Images(models.CategoryShoe), c.RenderedImageURLs)
	assert.True(t, report.CatalogFallback)
	assert.Equal(t, 0, report.Rendered)
	assert.Equal(t, 4, h.synth.calls)
	for i, s := range report.Scenes {
		assert.Equal(t, c.RenderedImageURLs[i], s.URL)
	}
}

func TestRunSynthesis_CatalogPadsToSceneCount(t *testing.T) {
	h := newHarness(models.CategoryJewelry)
	wf := approved(t, h, 6)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)

	urls := h.store.inserted[0].RenderedImageURLs
	assert.Equal(t, fallback.New().Fill(models.CategoryJewelry, 6), urls)
	assert.Len(t, urls, 6)
	assert.True(t, report.CatalogFallback)
}

func TestRunSynthesis_MissingSynthesisKeyFallsBack(t *testing.T) {
	h := newHarness(models.CategoryGlasses)
	h.secrets.values["seedream"] = ""
	h.synth.results = nil
	wf := approved(t, h, 2)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)
	assert.True(t, report.CatalogFallback)
	assert.Equal(t, []string{"", ""}, h.synth.keys)
}

func TestRunSynthesis_RehostFailureCreatesNothing(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.rehoster.failFor = map[string]error{"product": models.ErrAssetUploadFailed}
	wf := approved(t, h, 4)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, models.ErrAssetUploadFailed)

	assert.Empty(t, h.store.inserted)
	assert.Equal(t, 0, h.synth.calls)

	snap := wf.Snapshot()
	assert.Equal(t, campaign.StatePlanApproved, snap.State)
	assert.ErrorIs(t, snap.LastError, models.ErrAssetUploadFailed)
	assert.Nil(t, snap.Campaign)
	assert.Equal(t, []string{events.EventSynthesisStarted, events.EventFailed}, h.events.names())
}

func TestRunSynthesis_PersistenceFailure(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.synth.results = []synthResult{{url: "https://fal.example/1.png"}, {url: "https://fal.example/2.png"}}
	h.store.err = errors.New("pq: connection reset")
	wf := approved(t, h, 2)

	report, err := h.orch.RunSynthesis(context.Background(), wf)
	assert.ErrorIs(t, err, models.ErrPersistenceFailed)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Rendered)

	snap := wf.Snapshot()
	assert.Equal(t, campaign.StatePlanApproved, snap.State)
	assert.Nil(t, snap.Campaign)
	assert.ErrorIs(t, snap.LastError, models.ErrPersistenceFailed)
}

func TestRunSynthesis_PersonaDataURIRehosted(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.synth.results = []synthResult{{url: "https://fal.example/1.png"}, {url: "https://fal.example/2.png"}}
	wf := newWorkflow(t)
	inline := sophia
	inline.ReferenceImageURL = "data:image/png;base64,iVBORw0KGgo="
	require.NoError(t, wf.SelectPersona(inline))
	require.NoError(t, wf.CaptureProduct(redBag))
	require.NoError(t, wf.CaptureBrief("", 2))
	_, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)
	require.NoError(t, wf.ApprovePlan())

	_, err = h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)

	assert.Equal(t, []string{"product", "persona"}, h.rehoster.calls)
	assert.Equal(t, []string{ownerID, ownerID}, h.rehoster.owners)
	assert.Equal(t, []string{"https://storage.example/product.jpg", "https://storage.example/persona.jpg"}, h.synth.refs[0])
}

func TestRunSynthesis_PersonaRehostFailureDropsReference(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.rehoster.failFor = map[string]error{"persona": models.ErrAssetUploadFailed}
	h.synth.results = []synthResult{{url: "https://fal.example/1.png"}, {url: "https://fal.example/2.png"}}
	wf := newWorkflow(t)
	inline := sophia
	inline.ReferenceImageURL = "data:image/png;base64,iVBORw0KGgo="
	require.NoError(t, wf.SelectPersona(inline))
	require.NoError(t, wf.CaptureProduct(redBag))
	require.NoError(t, wf.CaptureBrief("", 2))
	_, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)
	require.NoError(t, wf.ApprovePlan())

	_, err = h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://storage.example/product.jpg"}, h.synth.refs[0])
}

func TestRunSynthesis_EmptyPersonaReferenceDropped(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.synth.results = []synthResult{{url: "https://fal.example/1.png"}, {url: "https://fal.example/2.png"}}
	wf := newWorkflow(t)
	bare := sophia
	bare.ReferenceImageURL = ""
	require.NoError(t, wf.SelectPersona(bare))
	require.NoError(t, wf.CaptureProduct(redBag))
	require.NoError(t, wf.CaptureBrief("", 2))
	_, err := h.orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)
	require.NoError(t, wf.ApprovePlan())

	_, err = h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://storage.example/product.jpg"}, h.synth.refs[0])
}

func TestRunSynthesis_CompletedRunCannotRerun(t *testing.T) {
	h := newHarness(models.CategoryBag)
	wf := approved(t, h, 2)

	_, err := h.orch.RunSynthesis(context.Background(), wf)
	require.NoError(t, err)

	_, err = h.orch.RunSynthesis(context.Background(), wf)
	assert.ErrorIs(t, err, campaign.ErrInvalidTransition)
	assert.Len(t, h.store.inserted, 1)
}

type blockingSynthesizer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSynthesizer) Generate(context.Context, string, string, []string) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return "https://fal.example/x.png", nil
}

func TestRunSynthesis_ConcurrentTriggerIsBusy(t *testing.T) {
	h := newHarness(models.CategoryBag)
	blocker := &blockingSynthesizer{started: make(chan struct{}, 1), release: make(chan struct{})}
	orch := campaign.NewOrchestrator(campaign.Deps{
		Planner:     h.planner,
		Synthesizer: blocker,
		Rehoster:    h.rehoster,
		Catalog:     fallback.New(),
		Store:       h.store,
		Secrets:     h.secrets,
	})
	wf := briefed(t, "Paris at dusk", 2)
	_, err := orch.RequestPlan(context.Background(), wf)
	require.NoError(t, err)
	require.NoError(t, orch.ApprovePlan(wf))

	done := make(chan error, 1)
	go func() {
		_, err := orch.RunSynthesis(context.Background(), wf)
		done <- err
	}()

	<-blocker.started
	_, err = orch.RunSynthesis(context.Background(), wf)
	assert.ErrorIs(t, err, campaign.ErrBusy)
	assert.ErrorIs(t, orch.RejectPlan(wf), campaign.ErrInvalidTransition)

	close(blocker.release)
	require.NoError(t, <-done)
	assert.Len(t, h.store.inserted, 1)
}

func TestStartSynthesis_DetachedFromCaller(t *testing.T) {
	h := newHarness(models.CategoryBag)
	h.synth.results = []synthResult{{url: "https://fal.example/1.png"}, {url: "https://fal.example/2.png"}}
	wf := approved(t, h, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := h.orch.StartSynthesis(ctx, wf)
	require.NoError(t, err)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("synthesis did not finish")
	}
	require.NoError(t, h.orch.Wait(context.Background()))

	assert.Equal(t, campaign.StateCompleted, wf.State())
	require.Len(t, h.store.inserted, 1)
	assert.Equal(t, []string{"https://fal.example/1.png", "https://fal.example/2.png"}, h.store.inserted[0].RenderedImageURLs)
}

func TestStartSynthesis_RejectsWrongState(t *testing.T) {
	h := newHarness(models.CategoryBag)
	wf := briefed(t, "", 2)

	done, err := h.orch.StartSynthesis(context.Background(), wf)
	assert.Nil(t, done)
	assert.ErrorIs(t, err, campaign.ErrInvalidTransition)
}
