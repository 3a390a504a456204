package segment

import (
	"context"
	"errors"
	"io"
	"sync"
)

var errClosed = errors.New("segment: boundary closed before first use")

// Lazy builds a Boundary on first use and reuses it afterwards. A failed
// build is not retried; every call reports the same error.
type Lazy struct {
	open func() (Boundary, error)
	once sync.Once
	b    Boundary
	err  error
}

// NewLazy returns a Lazy that calls open once.
func NewLazy(open func() (Boundary, error)) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) get() (Boundary, error) {
	l.once.Do(func() {
		l.b, l.err = l.open()
	})
	return l.b, l.err
}

// Sentences implements Boundary.
func (l *Lazy) Sentences(ctx context.Context, text string) ([]string, error) {
	b, err := l.get()
	if err != nil {
		return nil, err
	}
	return b.Sentences(ctx, text)
}

// Ready builds the Boundary now, so start-up problems surface early.
func (l *Lazy) Ready() error {
	_, err := l.get()
	return err
}

// Close releases the Boundary if it was built and holds resources. A Lazy
// closed before first use stays unusable.
func (l *Lazy) Close() error {
	l.once.Do(func() { l.err = errClosed })
	if c, ok := l.b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
