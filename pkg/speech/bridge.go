package speech

import (
	"context"
	"sync"
)

type outcome struct {
	result RecognitionResult
	err    error
}

// Bridge is a Recognizer fed from outside, typically by a browser posting
// the result of its own recognition API. At most one Listen may be pending.
type Bridge struct {
	mu        sync.Mutex
	supported bool
	waiting   chan outcome
	// armed is the slot opened by Begin and not yet taken by Listen.
	armed chan outcome
}

func NewBridge(supported bool) *Bridge {
	return &Bridge{supported: supported}
}

func (b *Bridge) Supported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supported
}

func (b *Bridge) SetSupported(supported bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supported = supported
}

// Begin opens the result slot for the next Listen, so results pushed before
// Listen runs are kept rather than rejected.
func (b *Bridge) Begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.supported {
		return ErrUnsupported
	}
	if b.waiting != nil || b.armed != nil {
		return ErrBusy
	}
	ch := make(chan outcome, 1)
	b.waiting = ch
	b.armed = ch
	return nil
}

func (b *Bridge) Listen(ctx context.Context) (RecognitionResult, error) {
	b.mu.Lock()
	ch := b.armed
	b.armed = nil
	if ch == nil {
		if !b.supported {
			b.mu.Unlock()
			return RecognitionResult{}, ErrUnsupported
		}
		if b.waiting != nil {
			b.mu.Unlock()
			return RecognitionResult{}, ErrBusy
		}
		ch = make(chan outcome, 1)
		b.waiting = ch
	}
	b.mu.Unlock()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-ctx.Done():
		b.mu.Lock()
		if b.waiting == ch {
			b.waiting = nil
		}
		b.mu.Unlock()
		return RecognitionResult{}, ctx.Err()
	}
}

// Listening reports whether a result would be accepted now.
func (b *Bridge) Listening() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiting != nil
}

// Push delivers a result to the pending Listen. Only the first push of a
// session is accepted.
func (b *Bridge) Push(result RecognitionResult) error {
	return b.deliver(outcome{result: result})
}

// Fail ends the pending Listen with a recognition error.
func (b *Bridge) Fail(code, message string) error {
	return b.deliver(outcome{err: &RecognitionError{Code: code, Message: message}})
}

func (b *Bridge) deliver(o outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.waiting == nil {
		return ErrNotListening
	}
	b.waiting <- o
	b.waiting = nil
	return nil
}
