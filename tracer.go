package modtrace

import (
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chaitin/modtrace/pkg/filterfuncs"
)

// Tracer drives the control files of one tracing
// directory. It holds no tracing state of its own, every
// call goes straight to the control files.
//
// A tracer must not be shared by processes or goroutines
// operating on the same tracing directory, since the
// writes of concurrent sessions would interleave.
type Tracer struct {
	root        string
	reportDir   string
	reportLimit uint64
	writer      ControlWriter
	logger      *zap.SugaredLogger
}

// New resolves the tracing directory and creates the
// tracer operating on it. No control file is written.
func New(options ...Option) (*Tracer, error) {
	option := newOption()
	WithOptions(options...)(option)
	logger := option.logger.Named("modtrace").Sugar()
	root, err := resolveRoot(logger, option.debugfsPath)
	if err != nil {
		return nil, err
	}
	writer := option.writer
	if writer == nil {
		writer = fileControl{root: root}
	}
	return &Tracer{
		root:        root,
		reportDir:   option.reportDir,
		reportLimit: option.reportLimit,
		writer:      writer,
		logger:      logger,
	}, nil
}

// Root returns the tracing directory.
func (t *Tracer) Root() string {
	return t.root
}

// write issues a single control write.
func (t *Tracer) write(file, value string) error {
	path := filepath.Join(t.root, file)
	t.logger.Debugf("write %q > %s", value, path)
	if err := t.writer.WriteControl(file, value); err != nil {
		return &ControlError{
			Op:    "write",
			File:  path,
			Value: value,
			Err:   err,
		}
	}
	return nil
}

// SetTracing turns the global tracing on or off. Turning
// it to the state it already has is harmless.
func (t *Tracer) SetTracing(enabled bool) error {
	return t.write(fileTracingOn, boolValue(enabled))
}

// Configure selects the tracer of the mode.
//
// The module filter goes first, since the kernel applies
// it to the tracer about to become current. An empty
// module leaves the filter untouched. The function
// profiler is enabled only along with the nop tracer.
//
// Configuring twice is not forbidden here, the latter
// current_tracer simply overrides the former one.
func (t *Tracer) Configure(mode Mode, module string) error {
	tracer := mode.Tracer()
	if tracer == "" {
		return errors.Errorf(
			"no tracer for mode %s", mode)
	}
	if module != "" {
		if err := t.write(fileFtraceFilter,
			":mod:"+module); err != nil {
			return err
		}
	}
	if err := t.write(fileCurrentTracer, tracer); err != nil {
		return err
	}
	return t.write(fileProfileEnabled,
		boolValue(tracer == TracerNop))
}

// Start turns off tracing, configures the mode and turns
// tracing back on. Tracing is never on while the tracer
// is partially configured.
//
// The module filter only applies to the call graph, the
// counting mode profiles every function.
func (t *Tracer) Start(mode Mode, module string) error {
	if err := t.SetTracing(false); err != nil {
		return err
	}
	switch mode {
	case ModeCallgraph:
		if err := t.Configure(mode, module); err != nil {
			return err
		}
		t.logFilter(module)
	case ModeCount:
		if err := t.Configure(mode, ""); err != nil {
			return err
		}
	}
	return t.SetTracing(true)
}

// logFilter reports how many functions the module filter
// has selected, as listed by the kernel.
func (t *Tracer) logFilter(module string) {
	if module == "" {
		return
	}
	data, err := ioutil.ReadFile(
		filepath.Join(t.root, fileFtraceFilter))
	if err != nil {
		t.logger.Debugf("read back filter: %s", err)
		return
	}
	list := filterfuncs.Parse(data,
		map[string]struct{}{module: {}})
	t.logger.Debugf("filter selects %d functions of module %q",
		list.Count(module), module)
}

// Reset restores the tracing directory to its idle state:
// tracing off, nop tracer, profiler off and no filter.
//
// Every step is attempted even if former ones fail, and
// the failures are returned together.
func (t *Tracer) Reset() error {
	set := &setError{
		Op:  "reset",
		Arg: []string{t.root},
	}
	steps := []struct {
		file, value string
	}{
		{fileTracingOn, "0"},
		{fileCurrentTracer, TracerNop},
		{fileProfileEnabled, "0"},
		{fileFtraceFilter, ""},
	}
	for _, step := range steps {
		if err := t.write(step.file, step.value); err != nil {
			set.Err = append(set.Err, err)
		}
	}
	if len(set.Err) > 0 {
		return set
	}
	return nil
}
