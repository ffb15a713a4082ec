// Package probe lists the debug probes and target devices that pyocd
// reports, and queries the installed pyocd version.
//
// A Service runs pyocd through a runner.Runner, validates the JSON envelope
// with the protocol package and projects the payload into Board and Target
// records. Document-level problems fail the call; a single malformed board
// or target entry is dropped and the rest are returned.
package probe

import (
	"strings"
	"time"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/computerscienceiscool/pyocd-probe/pkg/protocol"
	"github.com/computerscienceiscool/pyocd-probe/pkg/runner"
	"github.com/rs/zerolog"
)

// DefaultToolPath is used when Options.ToolPath is empty.
const DefaultToolPath = "pyocd"

// Options configures a Service.
type Options struct {
	ToolPath      string
	Timeout       time.Duration
	ExpectedMajor uint64
	Logger        zerolog.Logger
}

// Service is stateless apart from its configuration and safe for concurrent use.
type Service struct {
	runner        runner.Runner
	toolPath      string
	timeout       time.Duration
	expectedMajor uint64
	logger        zerolog.Logger
}

// NewService creates a service that invokes pyocd through r.
func NewService(r runner.Runner, opts Options) *Service {
	s := &Service{
		runner:        r,
		toolPath:      opts.ToolPath,
		timeout:       opts.Timeout,
		expectedMajor: opts.ExpectedMajor,
		logger:        opts.Logger,
	}
	if s.toolPath == "" {
		s.toolPath = DefaultToolPath
	}
	if s.timeout <= 0 {
		s.timeout = runner.DefaultTimeout
	}
	if s.expectedMajor == 0 {
		s.expectedMajor = protocol.FormatMajorVersion
	}
	return s
}

// ToolPath returns the program the service invokes.
func (s *Service) ToolPath() string {
	return s.toolPath
}

// BoardsCommand is the argv used to list connected probes.
func (s *Service) BoardsCommand() runner.Command {
	return runner.NewCommand(s.toolPath, "json", "--probes")
}

// TargetsCommand is the argv used to list supported targets.
func (s *Service) TargetsCommand() runner.Command {
	return runner.NewCommand(s.toolPath, "json", "--targets")
}

// VersionCommand is the argv used to query the pyocd version.
func (s *Service) VersionCommand() runner.Command {
	return runner.NewCommand(s.toolPath, "--version")
}

// Boards lists the connected debug probes.
func (s *Service) Boards() ([]Board, error) {
	text, err := s.runner.Run(s.BoardsCommand(), s.timeout)
	if err != nil {
		return nil, err
	}
	p, err := ParseBoards(text, s.expectedMajor)
	if err != nil {
		s.logRejected("boards", err)
		return nil, err
	}
	s.logSkipped("boards", p.Skipped)
	return p.Records, nil
}

// Targets lists the target devices pyocd supports.
func (s *Service) Targets() ([]Target, error) {
	text, err := s.runner.Run(s.TargetsCommand(), s.timeout)
	if err != nil {
		return nil, err
	}
	p, err := ParseTargets(text, s.expectedMajor)
	if err != nil {
		s.logRejected("targets", err)
		return nil, err
	}
	s.logSkipped("targets", p.Skipped)
	return p.Records, nil
}

// Version runs "pyocd --version" and parses its output.
func (s *Service) Version() (Version, error) {
	text, err := s.runner.Run(s.VersionCommand(), s.timeout)
	if err != nil {
		return Version{}, err
	}
	out := strings.TrimSpace(text)
	v, ok := ParseVersion(out)
	if !ok {
		return Version{}, perrors.New(perrors.KindInvalidFormat, "empty version output")
	}
	return v, nil
}

// ParseBoards decodes "json --probes" output.
func ParseBoards(text string, expectedMajor uint64) (Projection[Board], error) {
	return parseListing(text, expectedMajor, protocol.BoardsKey, BoardFromJSON)
}

// ParseTargets decodes "json --targets" output.
func ParseTargets(text string, expectedMajor uint64) (Projection[Target], error) {
	return parseListing(text, expectedMajor, protocol.TargetsKey, TargetFromJSON)
}

func parseListing[T any](text string, expectedMajor uint64, key string, mapping Mapping[T]) (Projection[T], error) {
	env, err := protocol.Decode(text, expectedMajor)
	if err != nil {
		return Projection[T]{}, err
	}
	items, err := env.Array(key)
	if err != nil {
		return Projection[T]{}, err
	}
	return Project(items, mapping), nil
}

func (s *Service) logRejected(what string, err error) {
	s.logger.Debug().Err(err).Str("listing", what).Msg("discarding pyocd output")
}

func (s *Service) logSkipped(what string, skipped []Skipped) {
	for _, sk := range skipped {
		s.logger.Debug().
			Str("listing", what).
			Int("index", sk.Index).
			Err(sk.Err).
			Msg("skipping malformed entry")
	}
}
