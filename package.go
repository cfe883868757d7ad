// Package modtrace configures the linux function tracer
// (ftrace) for a single kernel module, and collects the
// recorded trace into numbered report files.
//
// All tracing state lives in the control files under
// "<debugfs>/tracing", so a session usually spans two
// processes: one that starts the trace and another one
// that stops it and dumps the report.
package modtrace

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Mode is the tracing mode selected for a session.
type Mode uint8

const (
	// ModeNone leaves the current tracer untouched.
	ModeNone = Mode(iota)

	// ModeCallgraph records a function call graph with
	// timings using the function_graph tracer.
	ModeCallgraph

	// ModeCount counts function calls with the function
	// profiler while the nop tracer is current.
	ModeCount
)

// Tracer names written into current_tracer.
const (
	TracerFunctionGraph = "function_graph"
	TracerNop           = "nop"
)

// Tracer returns the name of the ftrace tracer backing
// the mode, or empty string for ModeNone.
func (m Mode) Tracer() string {
	switch m {
	case ModeCallgraph:
		return TracerFunctionGraph
	case ModeCount:
		return TracerNop
	default:
		return ""
	}
}

// String returns the name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeCallgraph:
		return "callgraph"
	case ModeCount:
		return "count"
	default:
		return "unknown"
	}
}

// Errors returned when validating a request. Each of them
// is detected before any control file is written.
var (
	ErrModuleRequired = errors.New(
		"a module to trace must be specified")
	ErrStartAndStop = errors.New(
		"cannot start and stop a trace at the same time")
	ErrMultipleModes = errors.New(
		"cannot perform multiple trace styles at once")
	ErrResetConflict = errors.New(
		"cannot reset while starting or stopping a trace")
)

// ErrNoTracingRoot is returned when the tracing directory
// under the debugfs mount does not exist.
var ErrNoTracingRoot = errors.New("cannot locate debugfs")

// ErrNoReportSlot is returned when every report file name
// below the report limit is already taken.
var ErrNoReportSlot = errors.New("no available report slot")

type option struct {
	debugfsPath string
	reportDir   string
	reportLimit uint64
	writer      ControlWriter
	logger      *zap.Logger
}

// Option to initialize the tracer.
type Option func(*option)

// WithDebugFSPath is the mount point of debugfs, the
// control files are looked up in its "tracing" directory.
// The default value is "/sys/kernel/debug".
func WithDebugFSPath(path string) Option {
	return func(opt *option) {
		opt.debugfsPath = path
	}
}

// WithReportDir is the directory where report files are
// created. The default value is the working directory.
func WithReportDir(dir string) Option {
	return func(opt *option) {
		opt.reportDir = dir
	}
}

// WithReportLimit is the number of report file names that
// are probed before giving up. The default value is 1000,
// and 0 probes without limit.
func WithReportLimit(limit uint64) Option {
	return func(opt *option) {
		opt.reportLimit = limit
	}
}

// WithControlWriter replaces how values are written into
// control files. By default they are written directly
// into the files under the tracing directory.
func WithControlWriter(writer ControlWriter) Option {
	return func(opt *option) {
		opt.writer = writer
	}
}

// WithLogger specifies the logger for the tracer.
// The default value is zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(opt *option) {
		opt.logger = logger
	}
}

// WithOptions aggregate a set of options together.
func WithOptions(opts ...Option) Option {
	return func(o *option) {
		for _, opt := range opts {
			opt(o)
		}
	}
}

// newOption creates the option with all default values.
func newOption() *option {
	return &option{
		debugfsPath: "/sys/kernel/debug",
		reportDir:   ".",
		reportLimit: 1000,
		logger:      zap.L(),
	}
}
