package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "migration files ship with the binary")
	for _, e := range entries {
		assert.Regexp(t, `^\d{4}_.+\.sql$`, e.Name())
	}
}
