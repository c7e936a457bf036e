package logbuf

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBufferLast(t *testing.T) {
	b := NewBuffer(4)
	for i := 0; i < 3; i++ {
		b.Append(Entry{Msg: fmt.Sprintf("m%d", i)})
	}

	last := b.Last(2)
	assert.Equal(t, []string{"m1", "m2"}, []string{last[0].Msg, last[1].Msg})
	assert.Len(t, b.Last(10), 3, "capped at what is buffered")
}

func TestBufferWrapsAround(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(Entry{Msg: fmt.Sprintf("m%d", i)})
	}

	last := b.Last(3)
	require.Len(t, last, 3)
	assert.Equal(t, "m2", last[0].Msg, "oldest surviving entry first")
	assert.Equal(t, "m4", last[2].Msg)
}

func TestZapHookCaptures(t *testing.T) {
	b := NewBuffer(8)
	logger := zap.Must(zap.NewDevelopment(zap.Hooks(b.ZapHook())))
	logger.Named("unit").Warn("signal lost")

	last := b.Last(1)
	require.Len(t, last, 1)
	assert.Equal(t, "WARN", last[0].Level)
	assert.Equal(t, "unit", last[0].Logger)
	assert.Equal(t, "signal lost", last[0].Msg)
	assert.WithinDuration(t, time.Now(), last[0].TS, time.Minute)
}
