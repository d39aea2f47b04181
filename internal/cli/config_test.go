package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algointent/walletcore/internal/config"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

func TestConfigInit(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized")

	info, err := os.Stat(config.Path(env.home))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = env.run(t, "", "config", "init")
	require.ErrorIs(t, err, walleterr.ErrGeneral)

	_, err = env.run(t, "", "config", "init", "--force")
	require.NoError(t, err)
}

func TestConfigSetGet(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "config", "set", "security.max_attempts", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Set security.max_attempts = 5")

	out, err = env.run(t, "", "config", "get", "security.max_attempts")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	loaded, err := config.Load(config.Path(env.home))
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Security.MaxAttempts)
	assert.Equal(t, config.Defaults().Ledger.AlgodURL, loaded.Ledger.AlgodURL, "other values keep their defaults")

	_, err = env.run(t, "", "config", "set", "ledger.algod_token", "12345")
	require.NoError(t, err)
	loaded, err = config.Load(config.Path(env.home))
	require.NoError(t, err)
	assert.Equal(t, "12345", loaded.Ledger.AlgodToken, "string fields keep numeric-looking values as text")
}

func TestConfigSet_Refusals(t *testing.T) {
	env := newCLIEnv(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown key", []string{"security.max_attempt", "5"}, walleterr.ErrValidation},
		{"unknown section", []string{"nope.value", "1"}, walleterr.ErrValidation},
		{"section not value", []string{"security", "1"}, walleterr.ErrValidation},
		{"out of range", []string{"security.max_attempts", "101"}, walleterr.ErrConfigInvalid},
		{"bad enum", []string{"storage.backend", "redis"}, walleterr.ErrConfigInvalid},
		{"wrong type", []string{"security.max_attempts", "many"}, walleterr.ErrConfigInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.run(t, "", append([]string{"config", "set"}, tc.args...)...)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := os.Stat(config.Path(env.home))
	assert.True(t, os.IsNotExist(err), "a refused change writes nothing")
}

func TestConfigGet_Suggestion(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "config", "get", "ledger.algod_ur")
	require.ErrorIs(t, err, walleterr.ErrValidation)

	var we *walleterr.WalletError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, `did you mean "ledger.algod_url"?`, we.Suggestion)
}

func TestConfigShow(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv(config.EnvAlgodToken, "supersecrettoken")

	out, err := env.run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "algod_url:")
	assert.Contains(t, out, "supe...")
	assert.NotContains(t, out, "supersecrettoken")

	out, err = env.run(t, "", "config", "get", "ledger.algod_token")
	require.NoError(t, err)
	assert.Equal(t, "supe...\n", out)
}

func TestMaskToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(not configured)", maskToken(""))
	assert.Equal(t, "***...", maskToken("short"))
	assert.Equal(t, "abcd...", maskToken("abcdefgh"))
}
