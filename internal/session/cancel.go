package session

import "sync"

// CancelToken is a single-shot cancellation signal for one query handle.
// It is registered only once the query reaches the "executing" state;
// calling Cancel before registration is the caller's responsibility to
// reject with gwerrors.QueryNotReady.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken creates an armed, uncanceled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel signals the token. Safe to call more than once or concurrently;
// only the first call has effect.
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Done returns a channel closed once Cancel has been called.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// Canceled reports whether Cancel has already been called.
func (t *CancelToken) Canceled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
