package logbuf

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// Entry is one captured log line, shaped for the live-log endpoint.
type Entry struct {
	TS     time.Time `json:"ts"`
	Level  string    `json:"level"`
	Logger string    `json:"logger"`
	Msg    string    `json:"msg"`
}

// Buffer is a fixed-size ring of the most recent log entries. Append and
// Last are safe for concurrent use; the zap hook appends from whatever
// goroutine logged.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func NewBuffer(capacity int) *Buffer {
	return &Buffer{entries: make([]Entry, capacity)}
}

func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Last returns up to n entries, oldest first.
func (b *Buffer) Last(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	size := b.next
	if b.full {
		size = len(b.entries)
	}
	if n > size {
		n = size
	}
	out := make([]Entry, 0, n)
	for i := size - n; i < size; i++ {
		idx := i
		if b.full {
			idx = (b.next + i) % len(b.entries)
		}
		out = append(out, b.entries[idx])
	}
	return out
}

// ZapHook tees every log entry into the ring. Wire it with
// zap.Hooks(buffer.ZapHook()) when building the root logger.
func (b *Buffer) ZapHook() func(zapcore.Entry) error {
	return func(e zapcore.Entry) error {
		b.Append(Entry{
			TS:     e.Time,
			Level:  e.Level.CapitalString(),
			Logger: e.LoggerName,
			Msg:    e.Message,
		})
		return nil
	}
}
