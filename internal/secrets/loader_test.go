package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("  secret-value \n"), 0o600))

	secret, err := Load(Source{Name: "api key", File: path})
	require.NoError(t, err)
	assert.Equal(t, "secret-value", secret)
}

func TestLoadFilePrecedesValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))

	secret, err := Load(Source{Name: "api key", Value: "inline", File: path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)
}

func TestLoadInlineValue(t *testing.T) {
	secret, err := Load(Source{Name: "api key", Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "inline", secret)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Source{Name: "api key"})
	require.Error(t, err)

	_, err = Load(Source{Name: "api key", File: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, []byte("   "), 0o600))
	_, err = Load(Source{Name: "api key", File: empty})
	require.Error(t, err)
}
