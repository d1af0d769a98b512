package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig 在暫存目錄建立 text 後端的設定，log 寫到檔案
func writeConfig(t *testing.T, backend string) (cfgPath, dataPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	dataPath = filepath.Join(dir, "accounts.txt")
	logPath = filepath.Join(dir, "branch.log")
	cfgPath = filepath.Join(dir, "config.yaml")

	doc := fmt.Sprintf(`branch:
  name: Test
storage:
  backend: %s
  text_path: %s
log:
  level: info
  format: json
  output: %s
`, backend, dataPath, logPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))
	return cfgPath, dataPath, logPath
}

func TestRun_SessionSavesOnExit(t *testing.T) {
	cfgPath, dataPath, logPath := writeConfig(t, "text")
	in := strings.NewReader("1\n\n3\n1\n25\n\n6\n")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfgPath, in, &out))
	assert.Contains(t, out.String(), "Account 1 created!")

	data, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	assert.Equal(t, "1,25\n", string(data))

	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "branch started")
	assert.Contains(t, string(logs), "branch exited")
}

func TestRun_CanceledContextStillSaves(t *testing.T) {
	cfgPath, dataPath, logPath := writeConfig(t, "text")
	require.NoError(t, os.WriteFile(dataPath, []byte("1,10\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, run(ctx, cfgPath, strings.NewReader(""), &bytes.Buffer{}))

	data, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	assert.Equal(t, "1,10\n", string(data))

	logs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "shutting down branch...")
}

func TestRun_StartupFailureIsLogged(t *testing.T) {
	cfgPath, dataPath, logPath := writeConfig(t, "text")
	require.NoError(t, os.WriteFile(dataPath, []byte("not,a,ledger\n"), 0o644))

	err := run(context.Background(), cfgPath, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)

	logs, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(logs), "failed to start branch")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfgPath, _, _ := writeConfig(t, "tape")
	assert.Error(t, run(context.Background(), cfgPath, strings.NewReader(""), &bytes.Buffer{}))
}
