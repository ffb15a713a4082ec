package runner

import (
	"errors"
	"os"
	"os/exec"
	"time"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/rs/zerolog"
)

// stderrTail is how much of the program's standard error is kept for logging.
const stderrTail = 4096

// LocalRunner spawns the command as a host process.
type LocalRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// WaitDelay bounds how long Wait lingers on I/O after the process exits.
	WaitDelay time.Duration
	Logger    zerolog.Logger
}

// NewLocalRunner creates a runner that logs invocations to logger.
func NewLocalRunner(logger zerolog.Logger) *LocalRunner {
	return &LocalRunner{Logger: logger, WaitDelay: time.Second}
}

// Run starts cmd, drains its standard output and returns it. The process is
// killed if draining has not finished within timeout, and is always
// terminated and reaped before Run returns.
func (r *LocalRunner) Run(cmd Command, timeout time.Duration) (string, error) {
	if cmd.Empty() {
		return "", perrors.New(perrors.KindLaunch, "empty command")
	}
	timeout = effectiveTimeout(timeout)

	c := exec.Command(cmd.Program(), cmd.Args()...)
	c.Dir = r.Dir
	if len(r.Env) > 0 {
		c.Env = append(os.Environ(), r.Env...)
	}
	stderr := &tailBuffer{limit: stderrTail}
	c.Stderr = stderr
	c.WaitDelay = r.WaitDelay
	configureCommandProcess(c)

	stdout, err := c.StdoutPipe()
	if err != nil {
		return "", perrors.Wrap(perrors.KindLaunch, "error while launching command: "+cmd.String(), err)
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		return "", perrors.Wrap(perrors.KindLaunch, "error while launching command: "+cmd.String(), err)
	}

	// Closing the read end unblocks the drain even when a grandchild that
	// escaped the process group still holds the write end.
	dog := startWatchdog(timeout, func() {
		terminateCommandProcess(c)
		_ = stdout.Close()
	})

	text, timedOut, readErr := drainWatched(stdout, dog)

	terminateCommandProcess(c)
	waitErr := c.Wait()

	r.logInvocation(cmd, c, time.Since(start), stderr, waitErr, timedOut)

	if timedOut {
		return "", perrors.Newf(perrors.KindTimeout, "%s did not finish within %s", cmd, timeout)
	}
	if readErr != nil {
		return "", perrors.Wrap(perrors.KindRead, "error reading stdout of: "+cmd.String(), readErr)
	}
	return text, nil
}

func (r *LocalRunner) logInvocation(cmd Command, c *exec.Cmd, elapsed time.Duration, stderr *tailBuffer, waitErr error, timedOut bool) {
	ev := r.Logger.Debug().
		Strs("argv", cmd.Argv()).
		Dur("elapsed", elapsed).
		Bool("timed_out", timedOut)
	if c.ProcessState != nil {
		ev = ev.Int("exit_code", c.ProcessState.ExitCode())
	}
	if s := stderr.String(); s != "" {
		ev = ev.Str("stderr", s)
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		ev = ev.AnErr("wait_error", waitErr)
	}
	ev.Msg("command finished")
}
