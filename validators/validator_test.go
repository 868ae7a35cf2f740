package validators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title     string    `validate:"required,max=5"`
	StartTime time.Time `validate:"required"`
	EndTime   time.Time `validate:"required,gtfield=StartTime"`
	Max       int       `validate:"required,gt=0"`
}

func TestStructValid(t *testing.T) {
	now := time.Now()
	require.NoError(t, Struct(sample{Title: "ok", StartTime: now, EndTime: now.Add(time.Hour), Max: 1}))
}

func TestStructCollectsFieldErrors(t *testing.T) {
	now := time.Now()
	err := Struct(sample{Title: "too long", StartTime: now, EndTime: now.Add(-time.Hour)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "title must be at most 5 characters")
	assert.Contains(t, err.Error(), "endtime must be after starttime")
	assert.Contains(t, err.Error(), "max is required")
}

func TestEchoValidator(t *testing.T) {
	require.Error(t, NewValidator().Validate(sample{}))
}
