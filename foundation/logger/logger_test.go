package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/watoukuang/demochain/foundation/logger"
)

func TestNewWritesServiceField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")

	log, err := logger.New("TEST", path)
	require.NoError(t, err)

	log.Infow("startup", "status", "ok")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	require.Equal(t, "TEST", entry["service"])
	require.Equal(t, "startup", entry["msg"])
	require.Equal(t, "ok", entry["status"])
}
