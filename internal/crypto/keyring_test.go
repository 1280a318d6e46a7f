package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKeyring struct {
	key     string
	stored  string
	deleted bool
}

func (s *stubKeyring) GetKey() (string, error) {
	if s.key == "" {
		return "", errors.New("not found")
	}
	return s.key, nil
}

func (s *stubKeyring) SetKey(password string) error { s.stored = password; return nil }
func (s *stubKeyring) DeleteKey() error             { s.deleted = true; return nil }
func (s *stubKeyring) IsAvailable() bool            { return s.key != "" }

func TestEnvKeyring_EnvironmentWins(t *testing.T) {
	t.Setenv(EnvKey, "from-env")
	k := &envKeyring{next: &stubKeyring{key: "from-keychain"}}

	key, err := k.GetKey()
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
	assert.True(t, k.IsAvailable())
}

func TestEnvKeyring_FallsThrough(t *testing.T) {
	t.Setenv(EnvKey, "")
	next := &stubKeyring{key: "from-keychain"}
	k := &envKeyring{next: next}

	key, err := k.GetKey()
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", key)

	require.NoError(t, k.SetKey("new"))
	assert.Equal(t, "new", next.stored)
	require.NoError(t, k.DeleteKey())
	assert.True(t, next.deleted)
}

func TestEnvKeyring_NothingConfigured(t *testing.T) {
	t.Setenv(EnvKey, "")
	k := &envKeyring{next: &stubKeyring{}}

	_, err := k.GetKey()
	assert.Error(t, err)
	assert.False(t, k.IsAvailable())
}
