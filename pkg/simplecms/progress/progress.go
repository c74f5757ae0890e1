// Package progress provides the building blocks for upload progress
// reporting: a byte-counting reader, a monotonic clamp, phase apportioning
// for multi-file operations and a stall watchdog.
package progress

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrStalled is the cancellation cause of a watched context whose transfer
// made no progress within the stall timeout.
var ErrStalled = errors.New("transfer stalled")

// Reader counts the bytes read through it and reports the fraction of total
// as a percentage. Nothing is reported while total is unknown (<= 0).
type Reader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(percent float64)
	touch  func()
	eof    func()
}

// NewReader wraps r. report may be nil.
func NewReader(r io.Reader, total int64, report func(percent float64)) *Reader {
	return &Reader{r: r, total: total, report: report}
}

// OnRead registers a callback invoked after every successful read, used to
// feed a Watchdog.
func (p *Reader) OnRead(touch func()) *Reader {
	p.touch = touch
	return p
}

// OnEOF registers a callback invoked once when the underlying reader is
// exhausted.
func (p *Reader) OnEOF(done func()) *Reader {
	p.eof = done
	return p
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.touch != nil {
			p.touch()
		}
		if p.report != nil && p.total > 0 {
			p.report(percentOf(p.read, p.total))
		}
	}
	if err == io.EOF && p.eof != nil {
		done := p.eof
		p.eof = nil
		done()
	}
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (p *Reader) BytesRead() int64 {
	return p.read
}

func percentOf(n, total int64) float64 {
	pct := float64(n) * 100 / float64(total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Monotonic wraps report so that it only ever sees non-decreasing values
// clamped to [0,100]. It is safe for concurrent use.
func Monotonic(report func(percent float64)) func(percent float64) {
	var (
		mu   sync.Mutex
		last = -1.0
	)
	return func(percent float64) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		mu.Lock()
		if percent <= last {
			mu.Unlock()
			return
		}
		last = percent
		mu.Unlock()
		report(percent)
	}
}

// Phased apportions one 0-100 progress range across sequential phases of
// equal width, so that e.g. an image upload owns [0,50] and the following
// video upload owns [50,100].
type Phased struct {
	report func(percent float64)
	phases int
}

// NewPhased splits the range of report into the given number of phases.
// report is wrapped with Monotonic.
func NewPhased(phases int, report func(percent float64)) *Phased {
	if phases < 1 {
		phases = 1
	}
	return &Phased{report: Monotonic(report), phases: phases}
}

// Phase returns the reporter for phase i (zero based). Values in [0,100]
// passed to it are scaled into the phase's share of the total range.
func (p *Phased) Phase(i int) func(percent float64) {
	width := 100 / float64(p.phases)
	base := width * float64(i)
	return func(percent float64) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		p.report(base + percent*width/100)
	}
}

// Finish reports exactly 100.
func (p *Phased) Finish() {
	p.report(100)
}

// Watchdog cancels a context when Touch has not been called for longer
// than the stall timeout.
type Watchdog struct {
	mu     sync.Mutex
	timer  *time.Timer
	stall  time.Duration
	paused bool
	cancel context.CancelCauseFunc
}

// Watch derives a context that is cancelled with ErrStalled once no Touch
// happened for stall. A non-positive stall disables the watchdog.
func Watch(ctx context.Context, stall time.Duration) (context.Context, *Watchdog) {
	ctx, cancel := context.WithCancelCause(ctx)
	w := &Watchdog{stall: stall, cancel: cancel}
	if stall > 0 {
		w.timer = time.AfterFunc(stall, func() { cancel(ErrStalled) })
	}
	return ctx, w
}

// Touch records progress and pushes the stall deadline out.
func (w *Watchdog) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil && !w.paused {
		w.timer.Reset(w.stall)
	}
}

// Pause disarms the stall deadline without cancelling the context. Used
// once the payload is fully sent and only the remote response is pending.
func (w *Watchdog) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Stop releases the watchdog and its context.
func (w *Watchdog) Stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.cancel(context.Canceled)
}
