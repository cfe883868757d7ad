package modtrace

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/chaitin/modtrace/pkg/alloc"
)

// ReportPrefix is the file name prefix of reports, the
// report number follows it.
const ReportPrefix = "ftrace.log."

// Stop turns off tracing and dumps the report, returning
// the path of the report file.
func (t *Tracer) Stop(ctx context.Context) (string, error) {
	if err := t.SetTracing(false); err != nil {
		return "", err
	}
	return t.Dump(ctx)
}

// createReport creates the report file with the lowest
// number not taken yet.
//
// The file is created exclusively, so a name taken by a
// concurrent dump in between is skipped over.
func (t *Tracer) createReport() (*os.File, error) {
	var report *os.File
	var createErr error
	_, ok := alloc.Alloc(t.reportLimit, func(slot uint64) bool {
		path := filepath.Join(t.reportDir,
			fmt.Sprintf("%s%d", ReportPrefix, slot))
		f, err := os.OpenFile(path,
			os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			return true
		}
		report, createErr = f, err
		return false
	})
	if !ok {
		return nil, errors.Wrapf(ErrNoReportSlot,
			"%s%d", ReportPrefix, t.reportLimit-1)
	}
	if createErr != nil {
		return nil, errors.Wrap(createErr, "create report")
	}
	return report, nil
}

// copyStats appends the per-cpu function statistics to
// the report in the lexical order of their names.
func (t *Tracer) copyStats(ctx context.Context, report io.Writer) error {
	pattern := filepath.Join(t.root, patternFunctionStat)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrapf(err, "glob %s", pattern)
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendFile(report, path); err != nil {
			return err
		}
	}
	return nil
}

// appendFile copies the whole trace file to the report.
func appendFile(report io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ControlError{Op: "read", File: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(report, f); err != nil {
		return errors.Wrapf(err, "copy %s", path)
	}
	return nil
}

// Dump writes the trace buffer followed by the function
// statistics into a new report file, and returns the path
// of the report. Tracing is left as it is.
//
// The report is removed if it cannot be completed.
func (t *Tracer) Dump(ctx context.Context) (string, error) {
	report, err := t.createReport()
	if err != nil {
		return "", err
	}
	path := report.Name()
	t.logger.Infof("dumping results to %s", path)
	completed := false
	defer func() {
		_ = report.Close()
		if !completed {
			_ = os.Remove(path)
		}
	}()

	if err := appendFile(report,
		filepath.Join(t.root, fileTrace)); err != nil {
		return "", err
	}
	if err := t.copyStats(ctx, report); err != nil {
		return "", err
	}
	if err := report.Close(); err != nil {
		return "", errors.Wrap(err, "close report")
	}
	completed = true
	return path, nil
}
