package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_EmptyDocReturnsDefaults(t *testing.T) {
	got := Resolve(nil, Default())
	assert.Equal(t, Default(), got)
}

func TestResolve_GarbageDocReturnsDefaults(t *testing.T) {
	for _, doc := range []string{
		`not json at all`,
		`[1, 2, 3]`,
		`"a string"`,
		`42`,
	} {
		got := Resolve([]byte(doc), Default())
		assert.Equal(t, Default(), got, "doc: %s", doc)
	}
}

func TestResolve_PartialOverlay(t *testing.T) {
	doc := []byte(`{"dealAge": {"warnDays": 45}}`)
	got := Resolve(doc, Default())

	assert.Equal(t, 45, got.DealAge.WarnDays)
	// Siblings keep their defaults.
	assert.Equal(t, Default().DealAge.AgingDays, got.DealAge.AgingDays)
	assert.Equal(t, Default().Activity, got.Activity)
}

func TestResolve_WrongTypedFieldsFallBackIndividually(t *testing.T) {
	doc := []byte(`{
		"activity": {
			"hotDays": "soon",
			"warmDays": 20,
			"hotImpact": null,
			"warmImpact": {"nested": true}
		}
	}`)
	got := Resolve(doc, Default())

	d := Default().Activity
	assert.Equal(t, d.HotDays, got.Activity.HotDays)
	assert.Equal(t, 20, got.Activity.WarmDays)
	assert.Equal(t, d.HotImpact, got.Activity.HotImpact)
	assert.Equal(t, d.WarmImpact, got.Activity.WarmImpact)
}

func TestResolve_FractionalValuesRound(t *testing.T) {
	doc := []byte(`{"closeDate": {"closingSoonDays": 7.6}}`)
	got := Resolve(doc, Default())
	assert.Equal(t, 8, got.CloseDate.ClosingSoonDays)
}

func TestResolve_StageWeightsOverlayNumericOnly(t *testing.T) {
	doc := []byte(`{"stageWeights": {"Negotiation": 20, "Lead": "low", "New Stage": 3}}`)
	got := Resolve(doc, Default())

	assert.Equal(t, 20, got.StageWeights["Negotiation"])
	assert.Equal(t, -10, got.StageWeights["Lead"])
	assert.Equal(t, 3, got.StageWeights["New Stage"])
	// Untouched entries survive.
	assert.Equal(t, 10, got.StageWeights["Proposal"])
}

func TestResolve_DoesNotMutateDefaults(t *testing.T) {
	defaults := Default()
	doc := []byte(`{"stageWeights": {"Lead": 99}}`)
	_ = Resolve(doc, defaults)
	assert.Equal(t, -10, defaults.StageWeights["Lead"])
}

func TestStageWeight_UnknownStageIsZero(t *testing.T) {
	assert.Equal(t, 0, Default().StageWeight("Imaginary Stage"))
}
