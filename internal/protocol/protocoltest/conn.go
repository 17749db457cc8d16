// Package protocoltest provides an in-memory protocol.Conn for tests.
package protocoltest

import (
	"encoding/json"
	"sync"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
)

// Frame is a received envelope with its payload left undecoded.
type Frame struct {
	Type    protocol.Type   `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode - unmarshals the payload into target.
func (f Frame) Decode(target any) error {
	return json.Unmarshal(f.Payload, target)
}

type Conn struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
	err    error
}

func NewConn() *Conn {
	return &Conn{}
}

func (that *Conn) TrySend(data []byte) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrConnectionClosed
	}

	if that.err != nil {
		return that.err
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	that.frames = append(that.frames, frame)

	return nil
}

func (that *Conn) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
}

// FailWith - makes every following TrySend return err.
func (that *Conn) FailWith(err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.err = err
}

func (that *Conn) IsClosed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closed
}

// Frames - a copy of everything received so far.
func (that *Conn) Frames() []Frame {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]Frame(nil), that.frames...)
}

// Types - the types of everything received so far, in order.
func (that *Conn) Types() []protocol.Type {
	frames := that.Frames()

	types := make([]protocol.Type, 0, len(frames))
	for _, f := range frames {
		types = append(types, f.Type)
	}

	return types
}

// Last - the most recent frame of the given type.
func (that *Conn) Last(t protocol.Type) (Frame, bool) {
	frames := that.Frames()

	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == t {
			return frames[i], true
		}
	}

	return Frame{}, false
}

// Count - how many frames of the given type were received.
func (that *Conn) Count(t protocol.Type) int {
	n := 0
	for _, f := range that.Frames() {
		if f.Type == t {
			n++
		}
	}

	return n
}

func (that *Conn) Reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.frames = nil
}
