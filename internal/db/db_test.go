package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, notFound(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, notFound(other))
}

func TestNonNil(t *testing.T) {
	assert.Equal(t, []string{}, nonNil(nil))
	assert.Equal(t, []string{"go"}, nonNil([]string{"go"}))
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, schema, "UNIQUE (user_id, source_name, hash)")
	assert.Contains(t, schema, "vector(1536)")
	assert.Contains(t, schema, "ADD COLUMN IF NOT EXISTS embedding_text_hash")
}
