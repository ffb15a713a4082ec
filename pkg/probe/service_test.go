package probe

import (
	"errors"
	"sync"
	"testing"
	"time"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/computerscienceiscool/pyocd-probe/pkg/protocol"
	"github.com/computerscienceiscool/pyocd-probe/pkg/runner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunner stands in for the pyocd process.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(cmd runner.Command, timeout time.Duration) (string, error) {
	args := m.Called(cmd.Argv(), timeout)
	return args.String(0), args.Error(1)
}

func newTestService(r runner.Runner) *Service {
	return NewService(r, Options{Timeout: 5 * time.Second, Logger: zerolog.Nop()})
}

func TestNewService_Defaults(t *testing.T) {
	s := NewService(&MockRunner{}, Options{})
	assert.Equal(t, DefaultToolPath, s.ToolPath())
	assert.Equal(t, runner.DefaultTimeout, s.timeout)
	assert.Equal(t, protocol.FormatMajorVersion, s.expectedMajor)
}

func TestService_Commands(t *testing.T) {
	s := NewService(&MockRunner{}, Options{ToolPath: "/opt/pyocd/bin/pyocd"})
	assert.Equal(t, []string{"/opt/pyocd/bin/pyocd", "json", "--probes"}, s.BoardsCommand().Argv())
	assert.Equal(t, []string{"/opt/pyocd/bin/pyocd", "json", "--targets"}, s.TargetsCommand().Argv())
	assert.Equal(t, []string{"/opt/pyocd/bin/pyocd", "--version"}, s.VersionCommand().Argv())
}

func TestService_Boards(t *testing.T) {
	m := &MockRunner{}
	m.On("Run", []string{"pyocd", "json", "--probes"}, 5*time.Second).
		Return(`{"version":{"major":1,"minor":0},"status":0,"boards":[{"board_name":"X","unique_id":"1"}]}`, nil)

	boards, err := newTestService(m).Boards()
	require.NoError(t, err)
	assert.Equal(t, []Board{{Name: "X", UniqueID: "1"}}, boards)
	m.AssertExpectations(t)
}

func TestService_BoardsSkipsMalformedEntries(t *testing.T) {
	m := &MockRunner{}
	m.On("Run", mock.Anything, mock.Anything).Return(`{
		"version": {"major": 1, "minor": 1},
		"status": 0,
		"boards": [
			{"board_name": "a", "unique_id": "1"},
			{"board_name": "b", "unique_id": 2},
			{"board_name": "c", "unique_id": "3"},
			null,
			{"board_name": "e", "unique_id": "5"}
		]
	}`, nil)

	boards, err := newTestService(m).Boards()
	require.NoError(t, err)
	require.Len(t, boards, 3)
	assert.Equal(t, "a", boards[0].Name)
	assert.Equal(t, "c", boards[1].Name)
	assert.Equal(t, "e", boards[2].Name)
}

func TestService_BoardsEmptyList(t *testing.T) {
	m := &MockRunner{}
	m.On("Run", mock.Anything, mock.Anything).Return(`{"version":{"major":1,"minor":0},"status":0,"boards":[]}`, nil)

	boards, err := newTestService(m).Boards()
	require.NoError(t, err)
	assert.NotNil(t, boards)
	assert.Empty(t, boards)
}

func TestService_Targets(t *testing.T) {
	m := &MockRunner{}
	m.On("Run", []string{"pyocd", "json", "--targets"}, 5*time.Second).Return(`{
		"version": {"major": 1, "minor": 0},
		"status": 0,
		"targets": [
			{"name": "k64f", "vendor": "NXP", "part_number": "MK64FN1M0VLL12", "part_families": ["Kinetis", "K6x"], "svd_path": "/svd/k64f.svd"},
			{"name": "cortex_m", "vendor": "Generic", "part_number": "CoreSightTarget"}
		]
	}`, nil)

	targets, err := newTestService(m).Targets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, Target{
		Name:       "k64f",
		Vendor:     "NXP",
		PartNumber: "MK64FN1M0VLL12",
		Families:   []string{"Kinetis", "K6x"},
		SVDPath:    "/svd/k64f.svd",
	}, targets[0])
	assert.Equal(t, []string{}, targets[1].Families)
	m.AssertExpectations(t)
}

func TestService_DocumentFailures(t *testing.T) {
	tests := []struct {
		name   string
		output string
		target error
	}{
		{"not json", `Traceback (most recent call last):`, perrors.ErrParse},
		{"empty output", ``, perrors.ErrParse},
		{"version mismatch", `{"version":{"major":2,"minor":0},"status":0,"boards":[]}`, perrors.ErrInvalidFormat},
		{"nonzero status", `{"version":{"major":1,"minor":0},"status":1,"error":"No probes","boards":[{"board_name":"X"}]}`, perrors.ErrInvalidFormat},
		{"no boards key", `{"version":{"major":1,"minor":0},"status":0}`, perrors.ErrMissingKey},
		{"boards not array", `{"version":{"major":1,"minor":0},"status":0,"boards":{"board_name":"X"}}`, perrors.ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockRunner{}
			m.On("Run", mock.Anything, mock.Anything).Return(tt.output, nil)

			boards, err := newTestService(m).Boards()
			assert.Nil(t, boards)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestService_RunnerErrorsPassThrough(t *testing.T) {
	timeout := perrors.Newf(perrors.KindTimeout, "pyocd json --probes did not finish within 5s")
	m := &MockRunner{}
	m.On("Run", mock.Anything, mock.Anything).Return("", timeout)

	s := newTestService(m)
	_, err := s.Boards()
	assert.Same(t, timeout, err)
	_, err = s.Targets()
	assert.True(t, errors.Is(err, perrors.ErrTimeout))
	_, err = s.Version()
	assert.True(t, errors.Is(err, perrors.ErrTimeout))
}

func TestService_Version(t *testing.T) {
	m := &MockRunner{}
	m.On("Run", []string{"pyocd", "--version"}, 5*time.Second).Return("0.36.0\n", nil)

	v, err := newTestService(m).Version()
	require.NoError(t, err)
	assert.Equal(t, Version{0, 36, 0}, v)
}

func TestService_VersionEmptyOutput(t *testing.T) {
	m := &MockRunner{}
	m.On("Run", mock.Anything, mock.Anything).Return(" \n", nil)

	_, err := newTestService(m).Version()
	assert.True(t, errors.Is(err, perrors.ErrInvalidFormat))
}

func TestService_ConcurrentCalls(t *testing.T) {
	s := newTestService(runner.Func(func(cmd runner.Command, _ time.Duration) (string, error) {
		return `{"version":{"major":1,"minor":0},"status":0,"boards":[{"board_name":"X"}],"targets":[{"name":"t"}]}`, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			boards, err := s.Boards()
			assert.NoError(t, err)
			assert.Len(t, boards, 1)
			targets, err := s.Targets()
			assert.NoError(t, err)
			assert.Len(t, targets, 1)
		}()
	}
	wg.Wait()
}

func TestParseBoards_EndToEnd(t *testing.T) {
	p, err := ParseBoards(`{"version":{"major":1,"minor":0},"status":0,"boards":[{"board_name":"X","unique_id":"1"}]}`, protocol.FormatMajorVersion)
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	assert.Equal(t, Board{Name: "X", UniqueID: "1"}, p.Records[0])
	assert.Empty(t, p.Skipped)
}

func TestParseTargets_HonorsExpectedMajor(t *testing.T) {
	text := `{"version":{"major":2,"minor":0},"status":0,"targets":[{"name":"t"}]}`

	_, err := ParseTargets(text, 1)
	assert.True(t, errors.Is(err, perrors.ErrInvalidFormat))

	p, err := ParseTargets(text, 2)
	require.NoError(t, err)
	assert.Len(t, p.Records, 1)
}

func TestParseBoards_DifferentlyCasedKeysDoNotDropEntries(t *testing.T) {
	p, err := ParseBoards(`{"version":{"major":1,"minor":0},"status":0,"boards":[{"board_name":"X","unique_id":"1","Unique_ID":2}]}`, protocol.FormatMajorVersion)
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	assert.Equal(t, Board{Name: "X", UniqueID: "1"}, p.Records[0])
	assert.Empty(t, p.Skipped)
}
