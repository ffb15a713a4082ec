// Package runner executes an external command under a watchdog and returns
// its fully drained standard output.
//
// Two backends are provided: LocalRunner spawns the program directly on the
// host, ContainerRunner runs it inside a Docker container. Both guarantee
// that the process is gone by the time Run returns, whatever the outcome.
package runner

import (
	"strings"
	"time"
)

// DefaultTimeout bounds an invocation when the caller passes a non-positive timeout.
const DefaultTimeout = 60 * time.Second

// Command is an immutable argv: program first, then its arguments.
type Command struct {
	argv []string
}

// NewCommand builds a command from a program and its arguments.
func NewCommand(program string, args ...string) Command {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, program)
	argv = append(argv, args...)
	return Command{argv: argv}
}

// Program returns argv[0], or "" for the zero Command.
func (c Command) Program() string {
	if len(c.argv) == 0 {
		return ""
	}
	return c.argv[0]
}

// Args returns a copy of argv[1:].
func (c Command) Args() []string {
	if len(c.argv) < 2 {
		return nil
	}
	out := make([]string, len(c.argv)-1)
	copy(out, c.argv[1:])
	return out
}

// Argv returns a copy of the full argument vector.
func (c Command) Argv() []string {
	out := make([]string, len(c.argv))
	copy(out, c.argv)
	return out
}

// Empty reports whether the command has no program.
func (c Command) Empty() bool {
	return c.Program() == ""
}

func (c Command) String() string {
	return strings.Join(c.argv, " ")
}

// Runner runs a command to completion and returns its standard output.
type Runner interface {
	Run(cmd Command, timeout time.Duration) (string, error)
}

// Func adapts an ordinary function to the Runner interface.
type Func func(cmd Command, timeout time.Duration) (string, error)

// Run calls f(cmd, timeout).
func (f Func) Run(cmd Command, timeout time.Duration) (string, error) {
	return f(cmd, timeout)
}

// Observer is notified once per invocation, after the runner returns.
type Observer func(cmd Command, elapsed time.Duration, err error)

type observed struct {
	next      Runner
	observers []Observer
}

// Observe wraps r so every invocation is reported to the given observers.
func Observe(r Runner, observers ...Observer) Runner {
	if len(observers) == 0 {
		return r
	}
	return &observed{next: r, observers: observers}
}

func (o *observed) Run(cmd Command, timeout time.Duration) (string, error) {
	start := time.Now()
	out, err := o.next.Run(cmd, timeout)
	elapsed := time.Since(start)
	for _, obs := range o.observers {
		if obs != nil {
			obs(cmd, elapsed, err)
		}
	}
	return out, err
}

func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}
