package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	UserID string `validate:"required,uuid"`
	Limit  int    `validate:"min=0,max=500"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{UserID: "6f1c2f7e-3c1b-4a55-9a53-0c2b1e7f9d10"}))

	err := Struct(sample{UserID: "not-a-uuid", Limit: -1})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "userID must be a valid id")
	assert.Contains(t, err.Error(), "limit must be at least 0")

	err = Struct(sample{})
	assert.EqualError(t, err, "userID is required")
}

func TestID(t *testing.T) {
	assert.NoError(t, ID("jobId", "6f1c2f7e-3c1b-4a55-9a53-0c2b1e7f9d10"))

	err := ID("jobId", "not-a-uuid")
	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, "jobId must be a valid id")

	assert.EqualError(t, ID("x-user-id", ""), "x-user-id is required")
	assert.Error(t, ID("jobId", "6f1c2f7e-3c1b-4a55-9a53"))
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("run: %w", Errorf("keyword too long"))
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("boom")))
}
