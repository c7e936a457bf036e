package actorutil

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask runs a blocking function off the actor's receive loop
// and feeds the outcome back as a message. Errors are either recovered into
// a value or reported through OnError; they never escape as panics.
type SafeBackgroundTask[T any] struct {
	ctx       actor.Context
	fn        func() (*T, error)
	timeout   *time.Duration
	onError   func(error)
	recover   func(error) T
	onSuccess func(T)
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func NewBackgroundTaskErr(ctx actor.Context, fn func() error) *SafeBackgroundTask[any] {
	return &SafeBackgroundTask[any]{
		ctx: ctx,
		fn: func() (*any, error) {
			return nil, fn()
		},
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *SafeBackgroundTask[T]) OnSuccess(fn func(T)) *SafeBackgroundTask[T] {
	t.onSuccess = fn
	return t
}

// PipeTo delivers the successful result to the given actor.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	t.onSuccess = func(value T) {
		t.ctx.Send(pid, value)
	}
	t.Run()
}

// Run executes the task on a fresh goroutine.
func (t *SafeBackgroundTask[T]) Run() {
	go func() {
		bgFn := io.Eval(t.fn)
		bg := io.Map(bgFn, func(a *T) T {
			if a != nil {
				return *a
			}
			var zero T
			return zero
		})
		if t.timeout != nil {
			bg = io.WithTimeout[T](*t.timeout)(bg)
		}
		result := io.RunSync(bg)
		finalValue := result.Value
		if result.Error != nil {
			if t.recover != nil {
				finalValue = t.recover(result.Error)
			} else {
				if t.onError != nil {
					t.onError(result.Error)
				}
				return
			}
		}
		if t.onSuccess != nil {
			t.onSuccess(finalValue)
		}
	}()
}
