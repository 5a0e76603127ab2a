package campaign

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"luxegen-backend/internal/assets"
	"luxegen-backend/internal/models"
)

type State string

const (
	StatePersonaSelected  State = "persona_selected"
	StateProductCaptured  State = "product_captured"
	StateBriefCaptured    State = "brief_captured"
	StatePlanPending      State = "plan_pending"
	StatePlanReady        State = "plan_ready"
	StatePlanApproved     State = "plan_approved"
	StateSynthesisPending State = "synthesis_pending"
	StateCompleted        State = "completed"
)

const MaxSceneCount = 12

// Workflow is the state of one studio run. It performs no IO; the Orchestrator
// drives the pending states around the external calls.
type Workflow struct {
	mu sync.Mutex

	ownerID    string
	state      State
	persona    models.Persona
	product    *models.Product
	brief      string
	sceneCount int
	plan       *models.ShotPlan
	campaign   *models.Campaign
	report     *Report
	lastErr    error
	updatedAt  time.Time

	defaultSceneCount int
	now               func() time.Time
}

// Snapshot is a consistent copy of a Workflow's fields.
type Snapshot struct {
	OwnerID    string
	State      State
	Persona    models.Persona
	Product    *models.Product
	Brief      string
	SceneCount int
	Plan       *models.ShotPlan
	Campaign   *models.Campaign
	Report     *Report
	LastError  error
	UpdatedAt  time.Time
}

func NewWorkflow(ownerID string, persona models.Persona, defaultSceneCount int) (*Workflow, error) {
	if strings.TrimSpace(persona.ID) == "" {
		return nil, fmt.Errorf("%w: persona is required", ErrInvalidInput)
	}
	if defaultSceneCount < 1 || defaultSceneCount > MaxSceneCount {
		defaultSceneCount = 4
	}
	wf := &Workflow{
		ownerID:           ownerID,
		state:             StatePersonaSelected,
		persona:           persona,
		sceneCount:        defaultSceneCount,
		defaultSceneCount: defaultSceneCount,
		now:               time.Now,
	}
	wf.updatedAt = wf.now()
	return wf, nil
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) OwnerID() string {
	return w.ownerID
}

func (w *Workflow) UpdatedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		OwnerID:    w.ownerID,
		State:      w.state,
		Persona:    w.persona,
		Brief:      w.brief,
		SceneCount: w.sceneCount,
		Campaign:   w.campaign,
		Report:     w.report,
		LastError:  w.lastErr,
		UpdatedAt:  w.updatedAt,
	}
	if w.product != nil {
		p := *w.product
		s.Product = &p
	}
	if w.plan != nil {
		p := *w.plan
		p.Scenes = append([]models.Scene(nil), w.plan.Scenes...)
		s.Plan = &p
	}
	return s
}

func (w *Workflow) editable() bool {
	switch w.state {
	case StatePersonaSelected, StateProductCaptured, StateBriefCaptured:
		return true
	}
	return false
}

// SelectPersona swaps the persona. Inputs captured after it are kept.
func (w *Workflow) SelectPersona(persona models.Persona) error {
	if strings.TrimSpace(persona.ID) == "" {
		return fmt.Errorf("%w: persona is required", ErrInvalidInput)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.editable() {
		return w.rejectLocked("select persona")
	}
	w.persona = persona
	w.touchLocked()
	return nil
}

// CaptureProduct stores the product photograph. image must be an inline data URI.
func (w *Workflow) CaptureProduct(image string) error {
	image = strings.TrimSpace(image)
	if !assets.IsDataURI(image) {
		return fmt.Errorf("%w: product image must be a data uri", ErrInvalidInput)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.editable() {
		return w.rejectLocked("capture product")
	}
	w.product = &models.Product{
		ID:       fmt.Sprintf("prod_%d", w.now().UnixMilli()),
		Image:    image,
		Category: models.CategoryAccessory,
	}
	if w.state == StatePersonaSelected {
		w.state = StateProductCaptured
	}
	w.touchLocked()
	return nil
}

// CaptureBrief stores the creative direction, which may be empty.
// A zero sceneCount keeps the default.
func (w *Workflow) CaptureBrief(brief string, sceneCount int) error {
	if sceneCount < 0 || sceneCount > MaxSceneCount {
		return fmt.Errorf("%w: scene count must be between 1 and %d", ErrInvalidInput, MaxSceneCount)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateProductCaptured && w.state != StateBriefCaptured {
		return w.rejectLocked("capture brief")
	}
	if sceneCount == 0 {
		sceneCount = w.defaultSceneCount
	}
	w.brief = strings.TrimSpace(brief)
	w.sceneCount = sceneCount
	w.state = StateBriefCaptured
	w.touchLocked()
	return nil
}

// planInput is what a planning call needs, copied out under the lock.
type planInput struct {
	persona    models.Persona
	product    models.Product
	brief      string
	sceneCount int
}

func (w *Workflow) beginPlanning() (planInput, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StatePlanPending {
		return planInput{}, ErrBusy
	}
	if w.state != StateBriefCaptured {
		return planInput{}, w.rejectLocked("request plan")
	}
	if w.product == nil {
		return planInput{}, fmt.Errorf("%w: product is required", ErrInvalidInput)
	}

	w.state = StatePlanPending
	w.lastErr = nil
	w.touchLocked()
	return planInput{
		persona:    w.persona,
		product:    *w.product,
		brief:      w.brief,
		sceneCount: w.sceneCount,
	}, nil
}

func (w *Workflow) completePlanning(plan *models.ShotPlan) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.plan = plan
	w.product.Category = plan.Category
	w.state = StatePlanReady
	w.touchLocked()
}

func (w *Workflow) failPlanning(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.plan = nil
	w.lastErr = err
	w.state = StateBriefCaptured
	w.touchLocked()
}

func (w *Workflow) ApprovePlan() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePlanReady {
		return w.rejectLocked("approve plan")
	}
	w.state = StatePlanApproved
	w.touchLocked()
	return nil
}

// RejectPlan discards the plan and returns to the brief stage.
func (w *Workflow) RejectPlan() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePlanReady && w.state != StatePlanApproved {
		return w.rejectLocked("reject plan")
	}
	w.plan = nil
	w.report = nil
	w.lastErr = nil
	w.state = StateBriefCaptured
	w.touchLocked()
	return nil
}

type synthesisInput struct {
	ownerID string
	persona models.Persona
	product models.Product
	plan    models.ShotPlan
}

func (w *Workflow) beginSynthesis() (synthesisInput, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateSynthesisPending {
		return synthesisInput{}, ErrBusy
	}
	if w.state != StatePlanApproved {
		return synthesisInput{}, w.rejectLocked("run synthesis")
	}

	w.state = StateSynthesisPending
	w.lastErr = nil
	w.report = nil
	w.touchLocked()
	return synthesisInput{
		ownerID: w.ownerID,
		persona: w.persona,
		product: *w.product,
		plan:    *w.plan,
	}, nil
}

func (w *Workflow) completeSynthesis(c *models.Campaign, report *Report) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.campaign = c
	w.report = report
	w.state = StateCompleted
	w.touchLocked()
}

func (w *Workflow) failSynthesis(err error, report *Report) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastErr = err
	w.report = report
	w.state = StatePlanApproved
	w.touchLocked()
}

// Reset starts a new run with the same persona.
func (w *Workflow) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StatePlanPending || w.state == StateSynthesisPending {
		return ErrBusy
	}
	w.product = nil
	w.brief = ""
	w.sceneCount = w.defaultSceneCount
	w.plan = nil
	w.campaign = nil
	w.report = nil
	w.lastErr = nil
	w.state = StatePersonaSelected
	w.touchLocked()
	return nil
}

// Pending reports whether an external call is in flight.
func (w *Workflow) Pending() bool {
	s := w.State()
	return s == StatePlanPending || s == StateSynthesisPending
}

func (w *Workflow) rejectLocked(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, op, w.state)
}

func (w *Workflow) touchLocked() {
	w.updatedAt = w.now()
}
