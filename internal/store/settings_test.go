package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/db"
)

func TestGetJWTSecretGeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Len(t, secret1, 64, "32 bytes hex encoded")

	secret2, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, secret1, secret2)
}
