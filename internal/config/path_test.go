package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Run("expands leading tilde", func(t *testing.T) {
		assert.Equal(t, filepath.Join(home, "data/spend.db"), ExpandPath("~/data/spend.db"))
	})

	t.Run("expands bare tilde", func(t *testing.T) {
		assert.Equal(t, home, ExpandPath("~"))
	})

	t.Run("expands environment variables", func(t *testing.T) {
		t.Setenv("SPENDGUARD_TEST_DIR", "/var/lib/spendguard")
		assert.Equal(t, "/var/lib/spendguard/spend.db", ExpandPath("$SPENDGUARD_TEST_DIR/spend.db"))
	})

	t.Run("passes plain paths through", func(t *testing.T) {
		assert.Equal(t, "/tmp/spend.db", ExpandPath("/tmp/spend.db"))
	})

	t.Run("empty stays empty", func(t *testing.T) {
		assert.Empty(t, ExpandPath(""))
	})
}
