package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumontcloud/dumont-qa/app/config"
)

func Test_makeHostName(t *testing.T) {
	opts.HostName = "test"
	assert.Equal(t, "test", makeHostName())

	opts.HostName = ""
	exp, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, exp, makeHostName())
}

func Test_setupLogsWithLogsDisabled(t *testing.T) {
	opts.Log.Enabled = false
	assert.Equal(t, os.Stdout, setupLogs())
}

func Test_setupLogsToFile(t *testing.T) {
	tmpfile := filepath.Join(t.TempDir(), "qa.log")

	opts.Log.Enabled = true
	opts.Log.Filename = tmpfile
	opts.Log.MaxSize = 100
	opts.Log.MaxBackups = 7
	opts.Log.MaxAge = 0
	opts.Log.EnabledCompress = false

	out := setupLogs()
	assert.IsType(t, &lumberjack.Logger{}, out)

	logger := out.(*lumberjack.Logger)
	assert.Equal(t, tmpfile, logger.Filename)
	assert.Equal(t, 100, logger.MaxSize)
	assert.Equal(t, 7, logger.MaxBackups)
	assert.Equal(t, 0, logger.MaxAge)
	assert.False(t, logger.Compress)

	opts.Log.Enabled = false
}

func Test_makeSenderDisabled(t *testing.T) {
	cfg, err := loadTestConfig(t, `
target:
  base_url: https://dumont.cloud
probes:
  - {name: landing, path: /demo-app}
notify:
  destinations: ["mailto:qa@dumont.cloud"]
`)
	require.NoError(t, err)
	assert.Nil(t, makeSender(cfg), "sender is off without on_failure or on_completion")

	cfg.Notify.OnFailure = true
	assert.NotNil(t, makeSender(cfg))
}

func Test_runSchema(t *testing.T) {
	assert.NoError(t, runSchema())
}

func Test_loadConfigMissingFile(t *testing.T) {
	opts.Config = filepath.Join(t.TempDir(), "nope.yml")
	_, err := loadConfig()
	assert.Error(t, err)
}

func Test_loadConfigInvalid(t *testing.T) {
	_, err := loadTestConfig(t, "target:\n  base_url: ftp://x\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func loadTestConfig(t *testing.T, body string) (*config.Config, error) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "qa.yml")
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
	opts.Config = file
	return loadConfig()
}
