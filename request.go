package modtrace

import (
	"context"
)

// Request is what one invocation of the tool asks for.
type Request struct {
	Count     bool
	Callgraph bool
	Stop      bool
	Reset     bool
	Module    string
}

// Mode returns the tracing mode requested.
func (r Request) Mode() Mode {
	switch {
	case r.Callgraph:
		return ModeCallgraph
	case r.Count:
		return ModeCount
	default:
		return ModeNone
	}
}

// Validate checks the combination of the request. The
// rules are checked in order and the first violated one
// is returned.
func (r Request) Validate() error {
	starting := r.Count || r.Callgraph
	if starting && r.Module == "" {
		return ErrModuleRequired
	}
	if starting && r.Stop {
		return ErrStartAndStop
	}
	if r.Count && r.Callgraph {
		return ErrMultipleModes
	}
	if r.Reset && (starting || r.Stop) {
		return ErrResetConflict
	}
	return nil
}

// Run validates and executes the request. The path of the
// report is returned when the request stops the trace.
//
// Nothing is written before the request is validated and
// the tracing directory is found.
func Run(
	ctx context.Context, r Request, options ...Option,
) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	tracer, err := New(options...)
	if err != nil {
		return "", err
	}
	switch {
	case r.Stop:
		return tracer.Stop(ctx)
	case r.Reset:
		return "", tracer.Reset()
	default:
		return "", tracer.Start(r.Mode(), r.Module)
	}
}
