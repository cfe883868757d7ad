package modtrace

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidate(t *testing.T) {
	assert := assert.New(t)
	for _, testCase := range []struct {
		name    string
		request Request
		err     error
	}{
		{"empty", Request{}, nil},
		{"stop", Request{Stop: true}, nil},
		{"reset", Request{Reset: true}, nil},
		{"count", Request{Count: true, Module: "foo"}, nil},
		{"callgraph", Request{Callgraph: true, Module: "foo"}, nil},
		{"count without module",
			Request{Count: true}, ErrModuleRequired},
		{"callgraph without module",
			Request{Callgraph: true}, ErrModuleRequired},
		{"both without module",
			Request{Count: true, Callgraph: true, Stop: true}, ErrModuleRequired},
		{"count and stop",
			Request{Count: true, Module: "foo", Stop: true}, ErrStartAndStop},
		{"both and stop",
			Request{Count: true, Callgraph: true, Module: "foo", Stop: true},
			ErrStartAndStop},
		{"both",
			Request{Count: true, Callgraph: true, Module: "foo"}, ErrMultipleModes},
		{"reset and count",
			Request{Reset: true, Count: true, Module: "foo"}, ErrResetConflict},
		{"reset and stop",
			Request{Reset: true, Stop: true}, ErrResetConflict},
		{"module only", Request{Module: "foo"}, nil},
	} {
		assert.Equal(testCase.err, testCase.request.Validate(), testCase.name)
	}
}

func TestRequestMode(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(ModeNone, Request{Stop: true}.Mode())
	assert.Equal(ModeCount, Request{Count: true}.Mode())
	assert.Equal(ModeCallgraph, Request{Callgraph: true}.Mode())
}

func TestRunRejectsWithoutWrites(t *testing.T) {
	assert := assert.New(t)
	debugfs := newDebugFS(t)
	for _, request := range []Request{
		{Count: true, Callgraph: true, Module: "foo"},
		{Count: true},
		{Callgraph: true},
		{Count: true, Module: "foo", Stop: true},
		{Callgraph: true, Module: "foo", Stop: true},
		{Reset: true, Stop: true},
	} {
		w := &recordWriter{}
		_, err := Run(context.Background(), request,
			WithDebugFSPath(debugfs),
			WithControlWriter(w),
			WithLogger(zap.NewNop()))
		assert.Error(err)
		assert.Empty(w.writes)
	}
}

func TestRunCount(t *testing.T) {
	w := &recordWriter{}
	report, err := Run(context.Background(),
		Request{Count: true, Module: "foo"},
		WithDebugFSPath(newDebugFS(t)),
		WithControlWriter(w),
		WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Empty(t, report)
	assert.Equal(t, []string{
		"tracing_on=0",
		"current_tracer=nop",
		"function_profile_enabled=1",
		"tracing_on=1",
	}, w.writes)
}

func TestRunStop(t *testing.T) {
	assert := assert.New(t)
	debugfs := newDebugFS(t)
	reportDir := t.TempDir()
	writeTraceFiles(t, debugfs, "X", map[string]string{"function0": "Y"})

	report, err := Run(context.Background(), Request{Stop: true},
		WithDebugFSPath(debugfs),
		WithReportDir(reportDir),
		WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(filepath.Join(reportDir, "ftrace.log.0"), report)
	data, err := ioutil.ReadFile(report)
	require.NoError(t, err)
	assert.Equal("XY", string(data))
}

func TestRunReset(t *testing.T) {
	w := &recordWriter{}
	_, err := Run(context.Background(), Request{Reset: true},
		WithDebugFSPath(newDebugFS(t)),
		WithControlWriter(w),
		WithLogger(zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"tracing_on=0",
		"current_tracer=nop",
		"function_profile_enabled=0",
		"set_ftrace_filter=",
	}, w.writes)
}

func TestRunMissingDebugFS(t *testing.T) {
	assert := assert.New(t)
	debugfs := filepath.Join(t.TempDir(), "nonexistent")
	w := &recordWriter{}
	_, err := Run(context.Background(),
		Request{Callgraph: true, Module: "foo"},
		WithDebugFSPath(debugfs),
		WithControlWriter(w),
		WithLogger(zap.NewNop()))
	require.Error(t, err)
	assert.Equal(ErrNoTracingRoot, errors.Cause(err))
	assert.Contains(err.Error(), filepath.Join(debugfs, "tracing"))
	assert.Empty(w.writes)
}

func TestRunValidationBeforeDebugFS(t *testing.T) {
	_, err := Run(context.Background(),
		Request{Count: true, Callgraph: true, Module: "foo"},
		WithDebugFSPath(filepath.Join(t.TempDir(), "nonexistent")),
		WithLogger(zap.NewNop()))
	assert.Equal(t, ErrMultipleModes, err)
}
