package modtrace

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/chaitin/modtrace/pkg/kversion"
)

// Control files under the tracing directory.
const (
	fileTracingOn       = "tracing_on"
	fileCurrentTracer   = "current_tracer"
	fileFtraceFilter    = "set_ftrace_filter"
	fileProfileEnabled  = "function_profile_enabled"
	fileTrace           = "trace"
	patternFunctionStat = "trace_stat/function*"
)

// ControlWriter writes a value into a control file, the
// file is named relative to the tracing directory.
type ControlWriter interface {
	WriteControl(file, value string) error
}

// ControlError is returned when a control file cannot be
// written or a trace file cannot be read. After a failed
// write the tracer state in the kernel no longer matches
// what has been requested.
type ControlError struct {
	Op    string
	File  string
	Value string
	Err   error
}

// Error returns the formatted error string.
func (e *ControlError) Error() string {
	if e.Op == "write" {
		return fmt.Sprintf("control write failed: %q > %s: %s",
			e.Value, e.File, e.Err)
	}
	return fmt.Sprintf("control %s failed: %s: %s",
		e.Op, e.File, e.Err)
}

// Cause returns the underlying error.
func (e *ControlError) Cause() error {
	return e.Err
}

// Unwrap returns the underlying error.
func (e *ControlError) Unwrap() error {
	return e.Err
}

// setError represents a set of errors that could be returned
// by tracefs when operating on a set of control files.
type setError struct {
	Op  string
	Arg []string
	Err []error
}

// Error returns the formatted error string.
func (e *setError) Error() string {
	var errString []string
	for _, err := range e.Err {
		errString = append(errString, err.Error())
	}
	return fmt.Sprintf(
		"errors returned while %s(%q): %s", e.Op,
		strings.Join(e.Arg, ", "),
		strings.Join(errString, "\n"))
}

// fileControl is the default control writer, it writes
// the control files under root directly.
type fileControl struct {
	root string
}

// WriteControl overwrites the content of the file.
func (c fileControl) WriteControl(file, value string) error {
	return ioutil.WriteFile(filepath.Join(c.root, file),
		[]byte(value), os.FileMode(0600))
}

// boolValue is the textual form of a boolean control.
func boolValue(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}

// traceFSMount is where tracefs is mounted on its own on
// kernels that have it.
const traceFSMount = "/sys/kernel/tracing"

// minTraceFSVersion is the first kernel with tracefs.
var minTraceFSVersion = kversion.Must("4.1")

// resolveRoot evaluates the tracing directory under the
// debugfs mount and ensures it exists.
func resolveRoot(
	logger *zap.SugaredLogger, debugfsPath string,
) (string, error) {
	root := filepath.Join(debugfsPath, "tracing")
	if _, err := os.Stat(root); err != nil {
		hintTraceFS(logger)
		return "", errors.Wrapf(ErrNoTracingRoot,
			"tracing root %s", root)
	}
	checkFileSystem(logger, root)
	if unix.Geteuid() != 0 {
		logger.Warn("not running as root, " +
			"writing control files is likely to fail")
	}
	return root, nil
}

// hintTraceFS tells where tracefs is when it has been
// mounted on its own.
func hintTraceFS(logger *zap.SugaredLogger) {
	version, err := kversion.Current()
	if err != nil {
		logger.Debugf("kernel version: %s", err)
		return
	}
	if version < minTraceFSVersion {
		return
	}
	if _, err := os.Stat(traceFSMount); err != nil {
		return
	}
	logger.Infof("kernel %s has tracefs at %s, try --debugfs %s",
		version, traceFSMount, filepath.Dir(traceFSMount))
}

// checkFileSystem verifies that the specified file system
// is tracefs or debugfs. The debugfs directory must have
// last component name of tracing.
//
// Any other file system is only reported, control files
// will still be written into it.
func checkFileSystem(logger *zap.SugaredLogger, root string) {
	var fs unix.Statfs_t
	if err := unix.Statfs(root, &fs); err != nil {
		logger.Warnf("statfs %s: %s", root, err)
		return
	}
	if fs.Type == unix.TRACEFS_MAGIC {
		return
	}
	if fs.Type == unix.DEBUGFS_MAGIC &&
		filepath.Base(root) == "tracing" {
		return
	}
	logger.Warnf("%s is not tracefs or debugfs (magic %x)",
		root, fs.Type)
}
