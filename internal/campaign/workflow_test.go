package campaign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxegen-backend/internal/campaign"
	"luxegen-backend/internal/models"
)

func newWorkflow(t *testing.T) *campaign.Workflow {
	t.Helper()
	wf, err := campaign.NewWorkflow(ownerID, sophia, 4)
	require.NoError(t, err)
	return wf
}

func TestNewWorkflow_RequiresPersona(t *testing.T) {
	_, err := campaign.NewWorkflow(ownerID, models.Persona{}, 4)
	assert.ErrorIs(t, err, campaign.ErrInvalidInput)
}

func TestWorkflow_CaptureSequence(t *testing.T) {
	wf := newWorkflow(t)
	assert.Equal(t, campaign.StatePersonaSelected, wf.State())

	require.ErrorIs(t, wf.CaptureBrief("Paris at dusk", 4), campaign.ErrInvalidTransition)

	require.NoError(t, wf.CaptureProduct(redBag))
	assert.Equal(t, campaign.StateProductCaptured, wf.State())

	require.NoError(t, wf.CaptureBrief("  Paris at dusk ", 0))
	snap := wf.Snapshot()
	assert.Equal(t, campaign.StateBriefCaptured, snap.State)
	assert.Equal(t, "Paris at dusk", snap.Brief)
	assert.Equal(t, 4, snap.SceneCount)
	require.NotNil(t, snap.Product)
	assert.Equal(t, redBag, snap.Product.Image)
}

func TestWorkflow_EmptyBriefAllowed(t *testing.T) {
	wf := newWorkflow(t)
	require.NoError(t, wf.CaptureProduct(redBag))
	require.NoError(t, wf.CaptureBrief("", 3))
	assert.Equal(t, 3, wf.Snapshot().SceneCount)
}

func TestWorkflow_InvalidInputs(t *testing.T) {
	wf := newWorkflow(t)

	assert.ErrorIs(t, wf.CaptureProduct("https://example.com/bag.jpg"), campaign.ErrInvalidInput)
	assert.ErrorIs(t, wf.CaptureProduct(""), campaign.ErrInvalidInput)
	assert.ErrorIs(t, wf.SelectPersona(models.Persona{}), campaign.ErrInvalidInput)

	require.NoError(t, wf.CaptureProduct(redBag))
	assert.ErrorIs(t, wf.CaptureBrief("x", -1), campaign.ErrInvalidInput)
	assert.ErrorIs(t, wf.CaptureBrief("x", campaign.MaxSceneCount+1), campaign.ErrInvalidInput)
	assert.Equal(t, campaign.StateProductCaptured, wf.State())
}

func TestWorkflow_EditingEarlierInputsKeepsState(t *testing.T) {
	wf := newWorkflow(t)
	require.NoError(t, wf.CaptureProduct(redBag))
	require.NoError(t, wf.CaptureBrief("Paris at dusk", 4))

	mei := models.Persona{ID: "m2", Name: "Mei"}
	require.NoError(t, wf.SelectPersona(mei))
	require.NoError(t, wf.CaptureProduct("data:image/png;base64,iVBORw0KGgo="))

	snap := wf.Snapshot()
	assert.Equal(t, campaign.StateBriefCaptured, snap.State)
	assert.Equal(t, "m2", snap.Persona.ID)
	assert.Equal(t, "Paris at dusk", snap.Brief)
}

func TestWorkflow_ApproveRejectOutsidePlanReady(t *testing.T) {
	wf := newWorkflow(t)
	assert.ErrorIs(t, wf.ApprovePlan(), campaign.ErrInvalidTransition)
	assert.ErrorIs(t, wf.RejectPlan(), campaign.ErrInvalidTransition)
}

func TestWorkflow_Reset(t *testing.T) {
	wf := newWorkflow(t)
	require.NoError(t, wf.CaptureProduct(redBag))
	require.NoError(t, wf.CaptureBrief("Paris at dusk", 6))

	require.NoError(t, wf.Reset())

	snap := wf.Snapshot()
	assert.Equal(t, campaign.StatePersonaSelected, snap.State)
	assert.Equal(t, sophiaID, snap.Persona.ID)
	assert.Nil(t, snap.Product)
	assert.Empty(t, snap.Brief)
	assert.Equal(t, 4, snap.SceneCount)
}

func TestWorkflow_SnapshotIsACopy(t *testing.T) {
	wf := newWorkflow(t)
	require.NoError(t, wf.CaptureProduct(redBag))

	snap := wf.Snapshot()
	snap.Product.Image = "tampered"
	assert.Equal(t, redBag, wf.Snapshot().Product.Image)
}
