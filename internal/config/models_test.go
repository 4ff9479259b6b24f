package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, m.GetConfigPath())
	assert.Equal(t, Defaults(), m.Get())
	require.NoError(t, m.Get().Validate())
}

func TestNewManager_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "snapshot:\n  frame_delay: 4\n  file_type: png\n  location: /tmp/shot.png\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)
	cfg := m.Get()
	assert.Equal(t, 4, cfg.Snapshot.FrameDelay)
	assert.Equal(t, "png", cfg.Snapshot.FileType)
	assert.Equal(t, "/tmp/shot.png", cfg.Snapshot.Location)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, SourcePattern, cfg.Source.Type)
}

func TestNewManager_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: [nope"), 0644))

	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestManager_SetAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, m.Set("snapshot.frame_delay", "3"))
	require.NoError(t, m.Set("snapshot.file_type", "jpeg"))
	require.NoError(t, m.Set("preview.enabled", "false"))
	require.NoError(t, m.Set("log_level", "debug"))

	v, err := m.Lookup("snapshot.frame_delay")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	// persisted
	reloaded, err := NewManager(path)
	require.NoError(t, err)
	cfg := reloaded.Get()
	assert.Equal(t, 3, cfg.Snapshot.FrameDelay)
	assert.Equal(t, "jpeg", cfg.Snapshot.FileType)
	assert.False(t, cfg.Preview.Enabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestManager_SetRejectsInvalid(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Error(t, m.Set("snapshot.frame_delay", "-1"))
	assert.Error(t, m.Set("snapshot.frame_delay", "soon"))
	assert.Error(t, m.Set("snapshot.file_type", "gif"))
	assert.Error(t, m.Set("log_level", "loud"))
	assert.Error(t, m.Set("source.type", "webcam"))
	assert.Error(t, m.Set("no.such.key", "1"))

	assert.Equal(t, Defaults(), m.Get())
}

func TestManager_LookupUnknown(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	_, err = m.Lookup("bogus")
	assert.Error(t, err)
	for _, key := range Keys() {
		_, err := m.Lookup(key)
		assert.NoError(t, err, key)
	}
}

func TestValidate_GStreamerNeedsPipeline(t *testing.T) {
	cfg := Defaults()
	cfg.Source.Type = SourceGStreamer
	assert.Error(t, cfg.Validate())
	cfg.Source.Pipeline = "videotestsrc ! videoconvert ! video/x-raw,format=RGB"
	assert.NoError(t, cfg.Validate())
}

func TestApply_DoesNotValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Apply("snapshot.frame_delay", "-2"))
	assert.Equal(t, -2, cfg.Snapshot.FrameDelay)
	assert.Error(t, cfg.Validate())

	require.NoError(t, cfg.Apply("source.type", SourceLaunch))
	require.NoError(t, cfg.Apply("source.pipeline", "videotestsrc ! video/x-raw,format=RGB,width=8,height=8"))
	require.NoError(t, cfg.Apply("snapshot.frame_delay", "0"))
	assert.NoError(t, cfg.Validate())
}
