package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/config"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/sample"
	signalstore "github.com/newthinker/signalbook/internal/storage/signal"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cfgFile, debug, inspectJSON = "", false, false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "log.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signalbook dev")
}

func TestInspect_OpenLog(t *testing.T) {
	path := writeJSON(t, sample.Scenario(sample.OpenDerisk, "x", time.Now()))

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "state:     OPEN")
	assert.Contains(t, out, "result:    -")
	assert.Contains(t, out, "last:      Derisk 50%")
	assert.Contains(t, out, "remaining: 50%")
}

func TestInspect_SignalObjectAsJSON(t *testing.T) {
	sig := sample.Signals(time.Now())[6] // closed on the EVaR hard limit
	path := writeJSON(t, sig)

	out, err := execute(t, "inspect", "--json", path)
	require.NoError(t, err)

	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "CLOSED", st["state"])
	assert.Equal(t, "Risk", st["result"])
	assert.Equal(t, "Risk (EVaR)", st["result_label"])
	_, hasLabel := st["last_event"]
	assert.False(t, hasLabel)
}

func TestInspect_EmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "actions:   0")
	assert.Contains(t, out, "state:     OPEN")
	assert.Contains(t, out, "last:      -")
}

func TestInspect_BadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := execute(t, "inspect", path)
	assert.Error(t, err)

	_, err = execute(t, "inspect", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestArchive_SqliteStore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "signals.db")
	archivePath := filepath.Join(dir, "archive")

	cfg := strings.Join([]string{
		"log:",
		"  level: error",
		"storage:",
		"  driver: sqlite",
		"  dsn: " + dbPath,
		"archive:",
		"  enabled: true",
		"  type: localfs",
		"  path: " + archivePath,
	}, "\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	store, err := signalstore.NewGormStore(dbPath)
	require.NoError(t, err)
	_, err = sample.Seed(t.Context(), store, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := execute(t, "archive", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "archived 6 signal(s)")

	out, err = execute(t, "archive", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "archived 0 signal(s)")
}

func TestArchive_MemoryStoreRejected(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "archive")

	cfg := strings.Join([]string{
		"log:",
		"  level: error",
		"storage:",
		"  driver: memory",
		"seed:",
		"  enabled: true",
		"archive:",
		"  enabled: true",
		"  type: localfs",
		"  path: " + archivePath,
	}, "\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, err := execute(t, "archive", "--config", cfgPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.ErrorContains(t, err, "durable store")
	assert.NotContains(t, out, "archived")

	_, statErr := os.Stat(archivePath)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written to the archive")
}

func TestArchive_Disabled(t *testing.T) {
	_, err := execute(t, "archive")
	assert.ErrorContains(t, err, "archive is disabled")
}

func TestNewNotifiers(t *testing.T) {
	reg, err := newNotifiers(config.NotifyConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, reg, "no channels enabled")

	reg, err = newNotifiers(config.NotifyConfig{
		ClosedOnly: true,
		Channels: map[string]config.NotifierConfig{
			"webhook":  {Enabled: true, URL: "http://localhost:9999/hook"},
			"telegram": {Enabled: true, BotToken: "token", ChatID: "chat"},
			"email":    {},
		},
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, []string{"telegram", "webhook"}, reg.Names())

	_, err = newNotifiers(config.NotifyConfig{
		Channels: map[string]config.NotifierConfig{"webhook": {Enabled: true}},
	}, zap.NewNop())
	assert.Error(t, err)
}
