package command

import (
	"context"
	"slices"
)

// Action is the outcome of a before notification.
type Action int

const (
	// Continue processes the record.
	Continue Action = iota
	// Skip omits the record and continues with the next one.
	Skip
	// Break stops processing; earlier records keep their effects.
	Break
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Skip:
		return "skip"
	case Break:
		return "break"
	}
	return "unknown"
}

// BeforeInserter is implemented by records notified before insertion.
type BeforeInserter interface {
	BeforeInsert(ctx context.Context) Action
}

// AfterInserter is implemented by records notified after insertion, once
// the key is assigned.
type AfterInserter interface {
	AfterInsert(ctx context.Context)
}

// BeforeUpdater is implemented by records notified before an update.
type BeforeUpdater interface {
	BeforeUpdate(ctx context.Context) Action
}

// AfterUpdater is implemented by records notified after an update.
type AfterUpdater interface {
	AfterUpdate(ctx context.Context)
}

// BeforeDeleter is implemented by records notified before a delete.
type BeforeDeleter interface {
	BeforeDelete(ctx context.Context) Action
}

// AfterDeleter is implemented by records notified after a delete.
type AfterDeleter interface {
	AfterDelete(ctx context.Context)
}

// hooks holds the function notifications of one builder.
type hooks[T any] struct {
	before []func(ctx context.Context, rec *T) Action
	after  []func(ctx context.Context, rec *T)
}

func (h hooks[T]) clone() hooks[T] {
	return hooks[T]{
		before: slices.Clone(h.before),
		after:  slices.Clone(h.after),
	}
}

// runBefore asks the builder hooks and then the record's own hook. The
// first non-Continue answer wins.
func (h hooks[T]) runBefore(ctx context.Context, rec *T, own func(any) (Action, bool)) Action {
	for _, fn := range h.before {
		if a := fn(ctx, rec); a != Continue {
			return a
		}
	}
	if a, ok := own(rec); ok {
		return a
	}
	return Continue
}

func (h hooks[T]) runAfter(ctx context.Context, rec *T, own func(any)) {
	for _, fn := range h.after {
		fn(ctx, rec)
	}
	own(rec)
}

func beforeInsert(ctx context.Context) func(any) (Action, bool) {
	return func(rec any) (Action, bool) {
		if n, ok := rec.(BeforeInserter); ok {
			return n.BeforeInsert(ctx), true
		}
		return Continue, false
	}
}

func afterInsert(ctx context.Context) func(any) {
	return func(rec any) {
		if n, ok := rec.(AfterInserter); ok {
			n.AfterInsert(ctx)
		}
	}
}

func beforeUpdate(ctx context.Context) func(any) (Action, bool) {
	return func(rec any) (Action, bool) {
		if n, ok := rec.(BeforeUpdater); ok {
			return n.BeforeUpdate(ctx), true
		}
		return Continue, false
	}
}

func afterUpdate(ctx context.Context) func(any) {
	return func(rec any) {
		if n, ok := rec.(AfterUpdater); ok {
			n.AfterUpdate(ctx)
		}
	}
}

func beforeDelete(ctx context.Context) func(any) (Action, bool) {
	return func(rec any) (Action, bool) {
		if n, ok := rec.(BeforeDeleter); ok {
			return n.BeforeDelete(ctx), true
		}
		return Continue, false
	}
}

func afterDelete(ctx context.Context) func(any) {
	return func(rec any) {
		if n, ok := rec.(AfterDeleter); ok {
			n.AfterDelete(ctx)
		}
	}
}
