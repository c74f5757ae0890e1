package progress

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReportsFraction(t *testing.T) {
	var got []float64
	r := NewReader(strings.NewReader("0123456789"), 10, func(p float64) { got = append(got, p) })

	buf := make([]byte, 4)
	for {
		_, err := r.Read(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []float64{40, 80, 100}, got)
	assert.Equal(t, int64(10), r.BytesRead())
}

func TestReaderUnknownTotal(t *testing.T) {
	called := false
	r := NewReader(strings.NewReader("abc"), 0, func(float64) { called = true })
	_, err := io.Copy(io.Discard, r)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestReaderOverrunClamps(t *testing.T) {
	var last float64
	r := NewReader(bytes.NewReader(make([]byte, 20)), 10, func(p float64) { last = p })
	_, err := io.Copy(io.Discard, r)
	require.NoError(t, err)
	assert.Equal(t, 100.0, last)
}

func TestMonotonic(t *testing.T) {
	var got []float64
	report := Monotonic(func(p float64) { got = append(got, p) })

	for _, p := range []float64{-5, 10, 5, 10, 30, 250, 99} {
		report(p)
	}

	assert.Equal(t, []float64{0, 10, 30, 100}, got)
}

func TestPhased(t *testing.T) {
	tests := []struct {
		name   string
		phases int
		steps  func(p *Phased)
		want   []float64
	}{
		{
			name:   "single file owns the full range",
			phases: 1,
			steps: func(p *Phased) {
				p.Phase(0)(50)
				p.Phase(0)(100)
				p.Finish()
			},
			want: []float64{50, 100},
		},
		{
			name:   "image then video",
			phases: 2,
			steps: func(p *Phased) {
				img, vid := p.Phase(0), p.Phase(1)
				img(0)
				img(50)
				img(100)
				vid(0)
				vid(50)
				vid(100)
				p.Finish()
			},
			want: []float64{0, 25, 50, 75, 100},
		},
		{
			name:   "stale values from the first phase are dropped",
			phases: 2,
			steps: func(p *Phased) {
				p.Phase(1)(20)
				p.Phase(0)(100)
				p.Finish()
			},
			want: []float64{60, 100},
		},
		{
			name:   "finish without progress",
			phases: 2,
			steps:  func(p *Phased) { p.Finish() },
			want:   []float64{100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []float64
			p := NewPhased(tt.phases, func(v float64) { got = append(got, v) })
			tt.steps(p)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWatchdogCancelsStalledTransfer(t *testing.T) {
	ctx, w := Watch(context.Background(), 20*time.Millisecond)
	defer w.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
	assert.ErrorIs(t, context.Cause(ctx), ErrStalled)
}

func TestWatchdogTouchKeepsAlive(t *testing.T) {
	ctx, w := Watch(context.Background(), 50*time.Millisecond)
	defer w.Stop()

	for i := 0; i < 5; i++ {
		time.Sleep(10 * time.Millisecond)
		w.Touch()
	}
	assert.NoError(t, ctx.Err())
}

func TestWatchdogDisabled(t *testing.T) {
	ctx, w := Watch(context.Background(), 0)
	assert.NoError(t, ctx.Err())
	w.Stop()
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}

func TestReaderOnEOFFiresOnce(t *testing.T) {
	calls := 0
	r := NewReader(strings.NewReader("abc"), 3, nil).OnEOF(func() { calls++ })

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	_, err = r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, calls)
}

func TestWatchdogPause(t *testing.T) {
	ctx, w := Watch(context.Background(), 20*time.Millisecond)
	defer w.Stop()

	w.Pause()
	w.Touch()
	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, ctx.Err(), "a paused watchdog never fires")

	w.Stop()
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}
