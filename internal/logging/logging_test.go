package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotify/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestBuildHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(buildHandler(&buf, slog.LevelInfo, "json"))

	logger.Debug("hidden")
	logger.Info("Song created", "song_id", "abc")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Song created", entry["msg"])
	assert.Equal(t, "abc", entry["song_id"])
}

func TestBuildHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(buildHandler(&buf, slog.LevelDebug, "text"))

	logger.Debug("cache miss", "key", "songs:1")
	assert.Contains(t, buf.String(), "msg=\"cache miss\"")
	assert.Contains(t, buf.String(), "key=songs:1")
}

func TestBuildWriter_File(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "dotify.log")

	writer, closer := buildWriter(&out, config.LoggingConfig{File: path})
	require.NotNil(t, closer)

	_, err := writer.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
	assert.Equal(t, "line\n", out.String())
}

func TestBuildWriter_StdoutOnly(t *testing.T) {
	var out bytes.Buffer
	writer, closer := buildWriter(&out, config.LoggingConfig{})
	assert.Nil(t, closer)
	assert.Equal(t, &out, writer)
}
