package audit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/computerscienceiscool/pyocd-probe/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file if not exists", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "audit.log")

		logger, err := NewLogger(logPath, "r1")
		require.NoError(t, err)
		defer logger.Close()

		_, err = os.Stat(logPath)
		assert.NoError(t, err)
	})

	t.Run("appends to existing log file", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "audit.log")
		require.NoError(t, os.WriteFile(logPath, []byte("previous log entry\n"), 0644))

		logger, err := NewLogger(logPath, "r2")
		require.NoError(t, err)
		logger.Log(runner.NewCommand("pyocd", "--version"), time.Millisecond, nil)
		require.NoError(t, logger.Close())

		lines := readLines(t, logPath)
		require.Len(t, lines, 2)
		assert.Equal(t, "previous log entry", lines[0])
		assert.Contains(t, lines[1], "run:r2")
	})

	t.Run("fails for unwritable path", func(t *testing.T) {
		_, err := NewLogger(filepath.Join(t.TempDir(), "missing", "audit.log"), "r3")
		assert.ErrorContains(t, err, "could not open audit log")
	})
}

func TestLog_Format(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewLogger(logPath, "abc")
	require.NoError(t, err)
	logger.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	cmd := runner.NewCommand("pyocd", "json", "--probes")
	logger.Log(cmd, 1500*time.Millisecond, nil)
	logger.Log(cmd, 60*time.Second, perrors.Newf(perrors.KindTimeout, "%s did not finish within 1m0s", cmd))
	logger.Log(cmd, 0, errors.New("plain\nfailure"))
	require.NoError(t, logger.Close())

	lines := readLines(t, logPath)
	require.Len(t, lines, 3)
	assert.Equal(t, "2026-01-02T03:04:05Z|run:abc|pyocd|json --probes|success|1500ms|", lines[0])
	assert.Equal(t, "2026-01-02T03:04:05Z|run:abc|pyocd|json --probes|exec_timeout|60000ms|EXEC_TIMEOUT: pyocd json --probes did not finish within 1m0s", lines[1])
	assert.Equal(t, "2026-01-02T03:04:05Z|run:abc|pyocd|json --probes|failed|0ms|plain failure", lines[2])
}

func TestObserver_RecordsRunnerInvocations(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewLogger(logPath, "obs")
	require.NoError(t, err)

	r := runner.Observe(runner.Func(func(cmd runner.Command, _ time.Duration) (string, error) {
		return "0.36.0\n", nil
	}), logger.Observer())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Run(runner.NewCommand("pyocd", "--version"), time.Second)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	lines := readLines(t, logPath)
	assert.Len(t, lines, 5)
	for _, line := range lines {
		assert.Contains(t, line, "|pyocd|--version|success|")
	}
}

func TestNilLogger(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Log(runner.NewCommand("pyocd"), 0, nil)
	})
	assert.NoError(t, logger.Close())
}
