package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/graph"
	"github.com/matzehuels/grandgraph/pkg/observability"
)

// Stage is one attempt in a fallback chain.
type Stage struct {
	Name string
	Load func(ctx context.Context, key Key) (*graph.Graph, error)
}

// StageError records why a stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Fallback runs stages in order and returns the first graph produced. A
// stage that errors or returns a nil graph advances the chain. When every
// stage fails the error has ErrCodeNotFound and joins each StageError.
// Context cancellation stops the chain immediately.
func Fallback(ctx context.Context, logger *log.Logger, key Key, stages ...Stage) (*graph.Graph, string, error) {
	if logger == nil {
		logger = log.Default()
	}
	hooks := observability.Fetch()

	var errs []error
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		start := time.Now()
		g, err := s.Load(ctx, key)
		if err == nil && g == nil {
			err = gerrors.New(gerrors.ErrCodeNotFound, "empty result")
		}
		hooks.OnStageComplete(ctx, s.Name, time.Since(start), err)
		if err == nil {
			return g, s.Name, nil
		}
		logger.Debug("fallback stage failed", "stage", s.Name, "key", key, "err", err)
		errs = append(errs, &StageError{Stage: s.Name, Err: err})
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return nil, "", gerrors.Wrap(gerrors.ErrCodeNotFound, errors.Join(errs...), "could not load %s", key)
}
