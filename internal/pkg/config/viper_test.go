package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViperFromBytes(t *testing.T) {
	t.Run("FileValuesOverrideDefaults", func(t *testing.T) {
		cfg, err := NewViperFromBytes("yaml", []byte(`
modules:
  stepup:
    sweeper:
      interval_seconds: 5
notification:
  channels: " EMAIL, ,FILE "
`))
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, cfg.GetSecond("modules.stepup.sweeper.interval_seconds"))
		assert.Equal(t, []string{"EMAIL", "FILE"}, cfg.GetArray("notification.channels"))
	})

	t.Run("DefaultsApplyWhenMissing", func(t *testing.T) {
		cfg, err := NewViperFromBytes("yaml", []byte(`app: {}`))
		require.NoError(t, err)

		assert.Equal(t, 6, cfg.GetInt("modules.stepup.otp.default_length"))
		assert.Equal(t, 300, cfg.GetInt("modules.stepup.otp.default_ttl_seconds"))
		assert.True(t, cfg.GetBool("modules.stepup.otp.supersede_active"))
		assert.Equal(t, "memory", cfg.GetString("session.driver"))
	})

	t.Run("EmptyType", func(t *testing.T) {
		_, err := NewViperFromBytes(" ", nil)
		require.Error(t, err)
	})
}

func TestViperGetters(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(`
otp:
  ttl: 5
  digits: 6
secret: c2VjcmV0
broken: "%%%"
channels: "EMAIL, ,TELEGRAM"
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.GetMinute("otp.ttl"))
	assert.Equal(t, 5*time.Second, cfg.GetSecond("otp.ttl"))
	assert.Equal(t, int32(6), cfg.GetInt32("otp.digits"))
	assert.Equal(t, []byte("secret"), cfg.GetBinary("secret"))
	assert.Nil(t, cfg.GetBinary("broken"))
	assert.Equal(t, []string{"EMAIL", "TELEGRAM"}, cfg.GetArray("channels"))
	assert.Zero(t, cfg.GetInt("missing"))
}

func TestViperEnvOverride(t *testing.T) {
	t.Setenv("STEPUP_SESSION_DRIVER", "redis")
	t.Setenv("STEPUP_MODULES_STEPUP_OTP_DEFAULT_LENGTH", "8")

	cfg, err := NewViperFromBytes("yaml", []byte(`session: {driver: memory}`))
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.GetString("session.driver"))
	assert.Equal(t, 8, cfg.GetInt("modules.stepup.otp.default_length"))
}

func TestNewViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: {maintenance: {endpoints: \"\"}}\nextra: 1\n"), 0o600))

	cfg, err := NewViper(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })

	assert.Empty(t, cfg.GetArray("app.maintenance.endpoints"))
	assert.Equal(t, 1, cfg.GetInt("extra"))

	t.Run("reload replaces values", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("app: {maintenance: {endpoints: \"*\"}}\n"), 0o600))
		assert.Eventually(t, func() bool {
			return len(cfg.GetArray("app.maintenance.endpoints")) == 1
		}, 5*time.Second, 50*time.Millisecond)
		assert.Zero(t, cfg.GetInt("extra"))
	})

	t.Run("broken file keeps values", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("app: [\n"), 0o600))
		time.Sleep(300 * time.Millisecond)
		assert.Equal(t, []string{"*"}, cfg.GetArray("app.maintenance.endpoints"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
