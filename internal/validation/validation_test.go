package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/skipq/internal/pricing"
)

type quoteForm struct {
	Tier        string   `json:"service_tier" validate:"required,service_tier"`
	WaitMinutes *float64 `json:"wait_minutes" validate:"required,gte=0,lte=1440"`
	Note        string   `json:"note,omitempty" validate:"max=5"`
}

func ptr(v float64) *float64 { return &v }

func TestValidator_ReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Struct(quoteForm{Tier: "hold-forever", WaitMinutes: ptr(-1), Note: "too long"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 3)
	assert.Contains(t, verr.Errors["service_tier"], "valid service tier")
	assert.Equal(t, "wait_minutes must be greater than or equal to 0", verr.Errors["wait_minutes"])
	assert.Contains(t, verr.Errors["note"], "at most 5")
}

func TestValidator_RequiredPointer(t *testing.T) {
	err := New().Struct(quoteForm{Tier: "hold-share"})

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "wait_minutes is required", verr.Errors["wait_minutes"])
}

func TestValidator_AcceptsValidInput(t *testing.T) {
	assert.NoError(t, New().Struct(quoteForm{Tier: "Hold-Switch", WaitMinutes: ptr(0)}))
}

func TestFromPricing(t *testing.T) {
	_, err := pricing.Calculate(pricing.DefaultConfig(), pricing.FareInput{Tier: pricing.HoldShare, WaitMinutes: -1})

	verr, ok := FromPricing(err)
	require.True(t, ok)
	assert.Equal(t, "wait time must be between 0 and 1440 minutes", verr.Errors["wait_minutes"])

	_, ok = FromPricing(pricing.ErrInvalidConfig)
	assert.False(t, ok)
}

func TestError_MessageIsSorted(t *testing.T) {
	e := &Error{}
	e.Add("b", "second")
	e.Add("a", "first")

	assert.True(t, e.HasErrors())
	assert.Equal(t, "a: first; b: second", e.Error())
}
