package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/events"
	"luxegen-backend/internal/models"
	"luxegen-backend/internal/observability"
	"luxegen-backend/internal/planning"
)

const (
	ProviderPlanning  = "gemini"
	ProviderSynthesis = "seedream"

	productAssetPrefix = "product"
	personaAssetPrefix = "persona"
)

type Planner interface {
	Plan(ctx context.Context, apiKey string, req planning.Request) (*models.ShotPlan, error)
}

type Synthesizer interface {
	Generate(ctx context.Context, apiKey, prompt string, imageURLs []string) (string, error)
}

type AssetRehoster interface {
	Rehost(ctx context.Context, ownerID, dataURI, prefix string) (string, error)
}

type FallbackCatalog interface {
	Fill(category models.ProductCategory, n int) []string
	Placeholder(category models.ProductCategory, index int) string
}

type CampaignStore interface {
	InsertCampaign(ctx context.Context, c *models.Campaign) error
}

// SecretSource resolves provider credentials. An unconfigured provider yields "".
type SecretSource interface {
	GetSecret(ctx context.Context, provider string) (string, error)
}

type Deps struct {
	Planner     Planner
	Synthesizer Synthesizer
	Rehoster    AssetRehoster
	Catalog     FallbackCatalog
	Store       CampaignStore
	Secrets     SecretSource
	Events      events.Publisher
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() uuid.UUID
}

// SceneOutcome records what one scene's synthesis call produced.
type SceneOutcome struct {
	SequenceNumber int
	URL            string
	Placeholder    bool
	Err            error
}

// Report describes a synthesis run.
type Report struct {
	CampaignID      uuid.UUID
	Scenes          []SceneOutcome
	Rendered        int
	CatalogFallback bool
}

// Orchestrator sequences planning, re-hosting, synthesis and persistence for a Workflow.
type Orchestrator struct {
	planner     Planner
	synthesizer Synthesizer
	rehoster    AssetRehoster
	catalog     FallbackCatalog
	store       CampaignStore
	secrets     SecretSource
	events      events.Publisher
	logger      *slog.Logger
	now         func() time.Time
	newID       func() uuid.UUID

	wg sync.WaitGroup
}

func NewOrchestrator(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pub := deps.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.New
	}
	return &Orchestrator{
		planner:     deps.Planner,
		synthesizer: deps.Synthesizer,
		rehoster:    deps.Rehoster,
		catalog:     deps.Catalog,
		store:       deps.Store,
		secrets:     deps.Secrets,
		events:      pub,
		logger:      logger,
		now:         now,
		newID:       newID,
	}
}

// RequestPlan issues one planning call for the workflow's current inputs.
// On failure the workflow returns to the brief stage and the error wraps models.ErrPlanningFailed.
func (o *Orchestrator) RequestPlan(ctx context.Context, wf *Workflow) (*models.ShotPlan, error) {
	in, err := wf.beginPlanning()
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("owner_id", wf.OwnerID(), "persona_id", in.persona.ID)

	plan, err := o.plan(ctx, in)
	if err != nil {
		if !errors.Is(err, models.ErrPlanningFailed) {
			err = fmt.Errorf("%w: %v", models.ErrPlanningFailed, err)
		}
		wf.failPlanning(err)
		logger.Warn("planning failed", "err", err)
		return nil, err
	}

	wf.completePlanning(plan)
	logger.Info("plan ready", "category", plan.Category, "scenes", len(plan.Scenes))
	return plan, nil
}

func (o *Orchestrator) plan(ctx context.Context, in planInput) (*models.ShotPlan, error) {
	apiKey, err := o.secrets.GetSecret(ctx, ProviderPlanning)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s credentials: %v", models.ErrPlanningFailed, ProviderPlanning, err)
	}

	plan, err := o.planner.Plan(ctx, apiKey, planning.Request{
		ProductImage:       in.product.Image,
		PersonaImage:       in.persona.ReferenceImageURL,
		PersonaDescription: in.persona.PhysicalDescription,
		Brief:              in.brief,
		SceneCount:         in.sceneCount,
	})
	if err != nil {
		return nil, err
	}
	if err := validatePlan(plan, in.sceneCount); err != nil {
		return nil, err
	}
	return plan, nil
}

// validatePlan guards the plan shape regardless of which Planner produced it.
func validatePlan(plan *models.ShotPlan, sceneCount int) error {
	if plan == nil || len(plan.Scenes) != sceneCount {
		return fmt.Errorf("%w: plan does not carry %d scenes", models.ErrPlanningFailed, sceneCount)
	}
	for i, s := range plan.Scenes {
		last := i == len(plan.Scenes)-1
		if s.SequenceNumber != i+1 {
			return fmt.Errorf("%w: scene %d is numbered %d", models.ErrPlanningFailed, i+1, s.SequenceNumber)
		}
		if s.IsFinalPackshot != last {
			return fmt.Errorf("%w: packshot must be the final scene only", models.ErrPlanningFailed)
		}
		if (s.MotionPrompt == "") != last {
			return fmt.Errorf("%w: scene %d motion prompt does not match its packshot flag", models.ErrPlanningFailed, i+1)
		}
	}
	return nil
}

func (o *Orchestrator) ApprovePlan(wf *Workflow) error {
	return wf.ApprovePlan()
}

func (o *Orchestrator) RejectPlan(wf *Workflow) error {
	return wf.RejectPlan()
}

// RunSynthesis renders every scene of the approved plan and persists the campaign once.
// It runs to completion; a product upload or persistence failure returns the workflow
// to the approved-plan stage with no campaign recorded.
func (o *Orchestrator) RunSynthesis(ctx context.Context, wf *Workflow) (*Report, error) {
	in, err := wf.beginSynthesis()
	if err != nil {
		return nil, err
	}
	return o.synthesize(ctx, wf, in)
}

// StartSynthesis claims the workflow and renders in the background. The run is detached
// from ctx cancellation. done is closed when the run has finished.
func (o *Orchestrator) StartSynthesis(ctx context.Context, wf *Workflow) (done <-chan struct{}, err error) {
	in, err := wf.beginSynthesis()
	if err != nil {
		return nil, err
	}

	ch := make(chan struct{})
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(ch)
		_, _ = o.synthesize(context.WithoutCancel(ctx), wf, in)
	}()
	return ch, nil
}

// Wait blocks until background runs finish or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) synthesize(ctx context.Context, wf *Workflow, in synthesisInput) (*Report, error) {
	report := &Report{CampaignID: o.newID()}
	campaignID := report.CampaignID.String()
	category := in.plan.Category
	logger := o.logger.With("campaign_id", campaignID, "owner_id", in.ownerID)

	o.publish(ctx, logger, campaignID, events.EventSynthesisStarted,
		events.SynthesisStartedPayload(campaignID, len(in.plan.Scenes)))

	productURL, err := o.rehoster.Rehost(ctx, in.ownerID, in.product.Image, productAssetPrefix)
	if err != nil {
		if !errors.Is(err, models.ErrAssetUploadFailed) {
			err = fmt.Errorf("%w: %v", models.ErrAssetUploadFailed, err)
		}
		return nil, o.abort(ctx, logger, wf, report, err)
	}

	product := in.product
	product.ImageURL = productURL

	references := []string{productURL}
	if personaURL := o.personaReference(ctx, logger, in.ownerID, in.persona); personaURL != "" {
		references = append(references, personaURL)
	}

	urls := make([]string, len(in.plan.Scenes))
	report.Scenes = make([]SceneOutcome, len(in.plan.Scenes))
	for i, scene := range in.plan.Scenes {
		outcome := SceneOutcome{SequenceNumber: scene.SequenceNumber}

		url, err := o.renderScene(ctx, scene.SynthesisPrompt, references)
		if err != nil {
			outcome.Err = err
			outcome.Placeholder = true
			outcome.URL = o.catalog.Placeholder(category, i)
			logger.Warn("scene synthesis failed, placeholder used", "scene", scene.SequenceNumber, "err", err)
		} else {
			outcome.URL = url
			report.Rendered++
		}

		urls[i] = outcome.URL
		report.Scenes[i] = outcome
	}

	if report.Rendered == 0 {
		urls = o.catalog.Fill(category, len(in.plan.Scenes))
		for i := range report.Scenes {
			report.Scenes[i].URL = urls[i]
		}
		report.CatalogFallback = true
		observability.CatalogFallbacks.WithLabelValues(string(category)).Inc()
		logger.Warn("no scene rendered, catalog set used", "category", category)
	}

	c := &models.Campaign{
		ID:                report.CampaignID,
		OwnerID:           in.ownerID,
		Status:            models.CampaignCompleted,
		PersonaID:         in.persona.ID,
		Product:           product,
		Scenes:            in.plan.Scenes,
		RenderedImageURLs: urls,
		CreatedAt:         o.now().UTC(),
	}

	if err := o.store.InsertCampaign(ctx, c); err != nil {
		if !errors.Is(err, models.ErrPersistenceFailed) {
			err = fmt.Errorf("%w: %v", models.ErrPersistenceFailed, err)
		}
		return report, o.abort(ctx, logger, wf, report, err)
	}

	wf.completeSynthesis(c, report)
	observability.CampaignsCompleted.Inc()
	logger.Info("campaign completed",
		"category", category,
		"scenes", len(c.Scenes),
		"rendered", report.Rendered,
		"catalog_fallback", report.CatalogFallback,
	)
	o.publish(ctx, logger, campaignID, events.EventCompleted,
		events.CampaignCompletedPayload(c, report.Rendered, report.CatalogFallback))

	return report, nil
}

func (o *Orchestrator) renderScene(ctx context.Context, prompt string, references []string) (string, error) {
	apiKey, err := o.secrets.GetSecret(ctx, ProviderSynthesis)
	if err != nil {
		return "", fmt.Errorf("%w: read %s credentials: %v", models.ErrSynthesisEmpty, ProviderSynthesis, err)
	}
	url, err := o.synthesizer.Generate(ctx, apiKey, prompt, references)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", models.ErrSynthesisEmpty
	}
	return url, nil
}

// personaReference returns a URL the synthesis service can dereference, or "" to drop the reference.
func (o *Orchestrator) personaReference(ctx context.Context, logger *slog.Logger, ownerID string, persona models.Persona) string {
	ref := strings.TrimSpace(persona.ReferenceImageURL)
	if ref == "" || !assets.IsDataURI(ref) {
		return ref
	}
	url, err := o.rehoster.Rehost(ctx, ownerID, ref, personaAssetPrefix)
	if err != nil {
		logger.Warn("persona reference upload failed, rendering without it", "persona_id", persona.ID, "err", err)
		return ""
	}
	return url
}

func (o *Orchestrator) abort(ctx context.Context, logger *slog.Logger, wf *Workflow, report *Report, err error) error {
	wf.failSynthesis(err, report)
	logger.Error("synthesis run failed", "err", err)
	o.publish(ctx, logger, report.CampaignID.String(), events.EventFailed,
		events.CampaignFailedPayload(report.CampaignID.String(), err))
	return err
}

func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, campaignID, event string, payload map[string]interface{}) {
	if err := o.events.Publish(ctx, campaignID, event, payload); err != nil {
		logger.Warn("event publish failed", "event", event, "err", err)
	}
}
