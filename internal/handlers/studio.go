package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"luxegen-backend/internal/campaign"
	"luxegen-backend/internal/models"
)

// PersonaLookup resolves a persona visible to an operator.
type PersonaLookup interface {
	GetPersona(ctx context.Context, personaID, ownerID string) (*models.Persona, error)
}

// StudioHandler exposes the campaign workflow as per-operator studio sessions.
type StudioHandler struct {
	sessions     *campaign.SessionStore
	orchestrator *campaign.Orchestrator
	personas     PersonaLookup
	logger       *slog.Logger
}

func NewStudioHandler(sessions *campaign.SessionStore, orchestrator *campaign.Orchestrator, personas PersonaLookup, logger *slog.Logger) *StudioHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StudioHandler{
		sessions:     sessions,
		orchestrator: orchestrator,
		personas:     personas,
		logger:       logger,
	}
}

// CreateSession godoc
// @Summary     Open a studio session
// @Description Starts a campaign workflow with the chosen persona
// @Tags        studio
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateSessionRequest true "Persona"
// @Success     201 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /studio/sessions [post]
func (h *StudioHandler) CreateSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	persona, err := h.personas.GetPersona(c.Request.Context(), req.PersonaID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err := h.sessions.Create(userID, *persona)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("studio session opened", "session_id", sess.ID, "owner_id", userID, "persona_id", persona.ID)
	c.JSON(http.StatusCreated, sessionResponse(sess))
}

// GetSession godoc
// @Summary     Get a studio session
// @Description Returns the workflow state, the plan and, once completed, the campaign
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Success     200 {object} models.SessionResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id} [get]
func (h *StudioHandler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// SelectPersona godoc
// @Summary     Change the session persona
// @Tags        studio
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Param       request body models.SelectPersonaRequest true "Persona"
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/persona [put]
func (h *StudioHandler) SelectPersona(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req models.SelectPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	persona, err := h.personas.GetPersona(c.Request.Context(), req.PersonaID, sess.Workflow.OwnerID())
	if err != nil {
		respondError(c, err)
		return
	}

	h.transition(c, sess, func() error { return sess.Workflow.SelectPersona(*persona) })
}

// CaptureProduct godoc
// @Summary     Capture the product photograph
// @Tags        studio
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Param       request body models.CaptureProductRequest true "Product image as data URI"
// @Success     200 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/product [put]
func (h *StudioHandler) CaptureProduct(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req models.CaptureProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	h.transition(c, sess, func() error { return sess.Workflow.CaptureProduct(req.Image) })
}

// CaptureBrief godoc
// @Summary     Capture the creative direction
// @Tags        studio
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Param       request body models.CaptureBriefRequest true "Brief"
// @Success     200 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/brief [put]
func (h *StudioHandler) CaptureBrief(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req models.CaptureBriefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	h.transition(c, sess, func() error { return sess.Workflow.CaptureBrief(req.Brief, req.SceneCount) })
}

// RequestPlan godoc
// @Summary     Request a shot plan
// @Description Calls the planning service and waits for the plan
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/plan [post]
func (h *StudioHandler) RequestPlan(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	h.transition(c, sess, func() error {
		_, err := h.orchestrator.RequestPlan(c.Request.Context(), sess.Workflow)
		return err
	})
}

// ApprovePlan godoc
// @Summary     Approve the shot plan
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/plan/approve [post]
func (h *StudioHandler) ApprovePlan(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.transition(c, sess, func() error { return h.orchestrator.ApprovePlan(sess.Workflow) })
}

// RejectPlan godoc
// @Summary     Discard the shot plan
// @Description Returns the session to the brief stage
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/plan/reject [post]
func (h *StudioHandler) RejectPlan(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.transition(c, sess, func() error { return h.orchestrator.RejectPlan(sess.Workflow) })
}

// Synthesize godoc
// @Summary     Render the campaign
// @Description Starts rendering every scene of the approved plan. Poll the session for completion.
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Success     202 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/synthesize [post]
func (h *StudioHandler) Synthesize(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	if _, err := h.orchestrator.StartSynthesis(c.Request.Context(), sess.Workflow); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sessionResponse(sess))
}

// ResetSession godoc
// @Summary     Start a new run in the session
// @Description Keeps the persona and clears everything else
// @Tags        studio
// @Produce     json
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Success     200 {object} models.SessionResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id}/reset [post]
func (h *StudioHandler) ResetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.transition(c, sess, sess.Workflow.Reset)
}

// DeleteSession godoc
// @Summary     Close a studio session
// @Tags        studio
// @Security    Bearer
// @Param       session_id path string true "Session ID"
// @Success     204
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /studio/sessions/{session_id} [delete]
func (h *StudioHandler) DeleteSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid session id"})
		return
	}

	if err := h.sessions.Delete(sessionID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StudioHandler) session(c *gin.Context) (*campaign.Session, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return nil, false
	}
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid session id"})
		return nil, false
	}

	sess, err := h.sessions.Get(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sess, true
}

// transition runs fn and answers with the resulting session state.
func (h *StudioHandler) transition(c *gin.Context, sess *campaign.Session, fn func() error) {
	if err := fn(); err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("studio operation failed", "session_id", sess.ID, "err", err)
		}
		c.JSON(status, models.ErrorResponse{Error: msg, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess))
}

func sessionResponse(sess *campaign.Session) models.SessionResponse {
	snap := sess.Workflow.Snapshot()

	resp := models.SessionResponse{
		SessionID:  sess.ID.String(),
		State:      string(snap.State),
		PersonaID:  snap.Persona.ID,
		HasProduct: snap.Product != nil,
		Brief:      snap.Brief,
		SceneCount: snap.SceneCount,
		Plan:       snap.Plan,
		UpdatedAt:  snap.UpdatedAt,
	}
	if snap.Campaign != nil {
		cr := models.NewCampaignResponse(snap.Campaign)
		resp.Campaign = &cr
	}
	if snap.Report != nil {
		resp.CatalogFallback = snap.Report.CatalogFallback
		resp.SceneOutcomes = make([]models.SceneOutcomeResponse, len(snap.Report.Scenes))
		for i, s := range snap.Report.Scenes {
			out := models.SceneOutcomeResponse{
				SequenceNumber: s.SequenceNumber,
				URL:            s.URL,
				Placeholder:    s.Placeholder,
			}
			if s.Err != nil {
				out.Error = s.Err.Error()
			}
			resp.SceneOutcomes[i] = out
		}
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	return resp
}
