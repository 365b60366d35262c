package pool

import (
	"errors"
	"fmt"

	"github.com/utkarsh5026/threadpool/internal/types"
)

var (
	// ErrInvalidState is the root of every lifecycle misuse error.
	// Match with errors.Is(err, ErrInvalidState).
	ErrInvalidState = errors.New("pool: invalid state")

	ErrAlreadyInitialized = fmt.Errorf("%w: already initialized", ErrInvalidState)
	ErrShutdownInProgress = fmt.Errorf("%w: shutdown in progress", ErrInvalidState)
	ErrPoolShutdown       = fmt.Errorf("%w: pool is shut down", ErrInvalidState)

	ErrNilTask         = errors.New("pool: nil task submitted")
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)

// PanicError is the error a Future reports when its task panicked.
// Use errors.As to retrieve the panic value and stack.
type PanicError = types.PanicError

var (
	// ErrFutureTimeout is returned by Future.GetWithTimeout.
	ErrFutureTimeout = types.ErrFutureTimeout

	// ErrTaskGoexit is the error a Future reports when its task called
	// runtime.Goexit instead of returning.
	ErrTaskGoexit = types.ErrTaskGoexit
)
