// Package buffer holds a session's process output in a bounded window.
// The producer (process listeners) appends while consumers (status polls)
// drain incrementally through a cursor, so memory stays capped no matter
// how chatty the process is or how slowly clients poll.
package buffer

import "sync"

type Buffer struct {
	mu     sync.Mutex
	data   []byte
	cursor int
	cap    int
}

func New(capBytes int) *Buffer {
	return &Buffer{cap: capBytes}
}

// Append adds text to the end of the window. When the cap is exceeded the
// oldest bytes are dropped and the cursor shifts down by the same amount,
// clamped at zero. A slow reader sees a gap, never duplicated or negative
// positions.
func (b *Buffer) Append(text string) {
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, text...)
	if overflow := len(b.data) - b.cap; overflow > 0 {
		b.data = b.data[overflow:]
		b.cursor -= overflow
		if b.cursor < 0 {
			b.cursor = 0
		}
	}
}

// ReadNew returns everything after the cursor and advances it to the end.
// Two consecutive calls with no intervening append yield "" the second time.
func (b *Buffer) ReadNew() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := string(b.data[b.cursor:])
	b.cursor = len(b.data)
	return out
}

// Len returns the current window size in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// String returns the whole current window without moving the cursor.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}
