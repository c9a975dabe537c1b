package transactions

import (
	"context"
	"errors"
)

// Step is one named stage run over the shared state of a unit of work.
type Step[S any] struct {
	Name string
	Run  func(ctx context.Context, st S) error
}

// Pipeline runs its steps in order and stops at the first failure.
type Pipeline[S any] []Step[S]

// Check runs validation steps and returns the first failure as is.
func (p Pipeline[S]) Check(ctx context.Context, st S) error {
	for _, step := range p {
		if err := step.Run(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Commit runs write steps. Any failure becomes a commit_failed error naming
// the step.
func (p Pipeline[S]) Commit(ctx context.Context, st S) error {
	for _, step := range p {
		if err := step.Run(ctx, st); err != nil {
			var e *Error
			if errors.As(err, &e) && e.Kind == KindCommitFailed {
				return e
			}
			return commitError(step.Name, err)
		}
	}
	return nil
}
