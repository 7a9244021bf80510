package logger_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharednotes/sharednotes.go/pkg/logger"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.NewBuild().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, 0, buff.Len())

	templogger.AsLogger().Info("saved record", "record", "default-folder", "error", errors.New("boom"))

	assert.Contains(t, buff.String(), `"message":"saved record"`)
	assert.Contains(t, buff.String(), `"record":"default-folder"`)
	assert.Contains(t, buff.String(), `"error":"boom"`)
}

func TestLog_level(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.NewBuild().FromBuffer(buff).Level(zerolog.WarnLevel).Make()
	require.NoError(t, err)

	l := templogger.AsLogger()
	l.Debug("hidden")
	l.Info("hidden")
	assert.Equal(t, 0, buff.Len())

	l.Warn("shown", "dangling")
	assert.Contains(t, buff.String(), "shown")
	assert.Contains(t, buff.String(), "!BADKEY")
}

func TestLog_fromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharednotes.log")

	templogger, err := logger.NewBuild().FromPath(path).Make()
	require.NoError(t, err)

	templogger.AsLogger().Error("query failed")
	require.NoError(t, templogger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "query failed")
}

func TestSlog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	l := logger.New(slog.NewTextHandler(buff, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.Debug("connecting", "url", "http://localhost:8000")

	assert.Contains(t, buff.String(), "msg=connecting")
	assert.Contains(t, buff.String(), "url=http://localhost:8000")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Nop().Error("nothing", "k", "v")
	})
}
