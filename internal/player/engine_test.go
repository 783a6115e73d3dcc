package player

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shelfplayer/pkg/decoders"
)

// fakeDecoder serves totalFrames of silence and tracks seeks and closes.
type fakeDecoder struct {
	rate        int
	channels    int
	totalFrames int
	pos         int
	failSeek    bool
	closed      atomic.Int32
}

func (d *fakeDecoder) Open(string) error { return nil }

func (d *fakeDecoder) Close() error {
	d.closed.Add(1)
	return nil
}

func (d *fakeDecoder) GetFormat() (int, int, int) {
	return d.rate, d.channels, 16
}

func (d *fakeDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	remaining := d.totalFrames - d.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	n := samples
	if n > remaining {
		n = remaining
	}
	clear(audio[:n*d.channels*2])
	d.pos += n
	return n, nil
}

func (d *fakeDecoder) Seek(position time.Duration) error {
	if d.failSeek {
		return errors.New("seek not supported")
	}
	d.pos = int(position.Seconds() * float64(d.rate))
	return nil
}

func (d *fakeDecoder) Duration() (time.Duration, error) {
	return time.Duration(d.totalFrames) * time.Second / time.Duration(d.rate), nil
}

// fakeOutput accumulates writes. With drain set it reports an always-empty
// buffer, otherwise buffered bytes pile up so the engine hits backpressure.
type fakeOutput struct {
	mu       sync.Mutex
	drain    bool
	buffered int
	written  int
	clears   int
	paused   bool
	closed   bool
}

func (o *fakeOutput) Write(pcm []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written += len(pcm)
	o.buffered += len(pcm)
	return len(pcm), nil
}

func (o *fakeOutput) SetPaused(paused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = paused
}

func (o *fakeOutput) BufferedBytes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.drain {
		return 0
	}
	return o.buffered
}

func (o *fakeOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buffered = 0
	o.clears++
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeOutput) clearCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clears
}

func (o *fakeOutput) pausedState() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, out *fakeOutput, decs ...decoders.AudioDecoder) *Engine {
	t.Helper()

	next := 0
	e := New(func(rate, channels, bps int) (Output, error) {
		return out, nil
	}, testLogger())
	e.openDecoder = func(path string) (decoders.AudioDecoder, error) {
		if next >= len(decs) {
			return nil, errors.New("no more decoders")
		}
		d := decs[next]
		next++
		return d, nil
	}
	e.Start()
	t.Cleanup(e.Close)
	return e
}

// nextEvent reads one event or fails the test.
func nextEvent(t *testing.T, e *Engine) Event {
	t.Helper()
	select {
	case ev := <-e.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// waitState discards events until the wanted state change arrives.
func waitState(t *testing.T, e *Engine, want State) {
	t.Helper()
	for {
		if sc, ok := nextEvent(t, e).(StateChanged); ok && sc.State == want {
			return
		}
	}
}

// waitPosition discards events until a position update arrives.
func waitPosition(t *testing.T, e *Engine) time.Duration {
	t.Helper()
	for {
		if pu, ok := nextEvent(t, e).(PositionUpdate); ok {
			return pu.Position
		}
	}
}

func TestPlayEmitsLoadingDurationPlaying(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 60}
	e := newTestEngine(t, &fakeOutput{}, dec)

	e.Send(Play{Path: "book.mp3"})

	if sc, ok := nextEvent(t, e).(StateChanged); !ok || sc.State != StateLoading {
		t.Fatalf("first event: got %#v, want StateChanged(loading)", sc)
	}
	if dc, ok := nextEvent(t, e).(DurationChanged); !ok || dc.Duration != time.Minute {
		t.Fatalf("second event: got %#v, want DurationChanged(1m)", dc)
	}
	if sc, ok := nextEvent(t, e).(StateChanged); !ok || sc.State != StatePlaying {
		t.Fatalf("third event: got %#v, want StateChanged(playing)", sc)
	}
}

func TestPlayStartPosition(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 60}
	e := newTestEngine(t, &fakeOutput{}, dec)

	e.Send(Play{Path: "book.mp3", Position: 30 * time.Second})
	waitState(t, e, StatePlaying)

	pos := waitPosition(t, e)
	if pos < 30*time.Second || pos > 31*time.Second {
		t.Errorf("initial position: got %v, want about 30s", pos)
	}
}

func TestOpenFailureEmitsErrorThenStopped(t *testing.T) {
	e := newTestEngine(t, &fakeOutput{}) // opener has no decoders to hand out

	e.Send(Play{Path: "missing.mp3"})

	waitState(t, e, StateLoading)
	if _, ok := nextEvent(t, e).(Error); !ok {
		t.Fatal("expected Error event after failed open")
	}
	waitState(t, e, StateStopped)
}

func TestStopClearsBufferAndEndsSession(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 3600}
	out := &fakeOutput{}
	e := newTestEngine(t, out, dec)

	e.Send(Play{Path: "book.mp3"})
	waitState(t, e, StatePlaying)

	e.Send(Stop{})
	waitState(t, e, StateStopped)

	if out.clearCount() == 0 {
		t.Error("Stop did not clear the output buffer")
	}
	if dec.closed.Load() == 0 {
		t.Error("Stop did not close the decoder")
	}
}

func TestStopWhilePaused(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 3600}
	e := newTestEngine(t, &fakeOutput{}, dec)

	e.Send(Play{Path: "book.mp3"})
	waitState(t, e, StatePlaying)

	e.Send(Pause{})
	waitState(t, e, StatePaused)

	e.Send(Stop{})
	waitState(t, e, StateStopped)
}

func TestPauseResume(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 3600}
	out := &fakeOutput{}
	e := newTestEngine(t, out, dec)

	e.Send(Play{Path: "book.mp3"})
	waitState(t, e, StatePlaying)

	e.Send(Pause{})
	waitState(t, e, StatePaused)
	if !out.pausedState() {
		t.Error("output not paused after Pause")
	}

	// A paused engine must go quiet: no position updates
	select {
	case ev := <-e.Events():
		if _, ok := ev.(PositionUpdate); ok {
			t.Errorf("position update while paused: %#v", ev)
		}
	case <-time.After(300 * time.Millisecond):
	}

	e.Send(Resume{})
	waitState(t, e, StatePlaying)
	if out.pausedState() {
		t.Error("output still paused after Resume")
	}
}

func TestPauseWithoutSessionIsIgnored(t *testing.T) {
	e := newTestEngine(t, &fakeOutput{})

	e.Send(Pause{})
	e.Send(Resume{})
	e.Send(Seek{Position: time.Second})
	e.Send(Stop{})

	select {
	case ev := <-e.Events():
		t.Errorf("unexpected event without a session: %#v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSeekReportsNewPosition(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 3600}
	out := &fakeOutput{}
	e := newTestEngine(t, out, dec)

	e.Send(Play{Path: "book.mp3"})
	waitState(t, e, StatePlaying)

	e.Send(Seek{Position: 5 * time.Second})

	// After the seek takes effect every reported position sits at or
	// past the target, and the first one lands close to it.
	var pos time.Duration
	for {
		pos = waitPosition(t, e)
		if pos >= 5*time.Second {
			break
		}
	}
	if pos > 5*time.Second+500*time.Millisecond {
		t.Errorf("first post-seek position: got %v, want close to 5s", pos)
	}
	if out.clearCount() == 0 {
		t.Error("Seek did not clear the output buffer")
	}

	next := waitPosition(t, e)
	if next < pos {
		t.Errorf("position went backwards after seek: %v then %v", pos, next)
	}
}

func TestSeekFailureKeepsSession(t *testing.T) {
	dec := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 3600, failSeek: true}
	e := newTestEngine(t, &fakeOutput{}, dec)

	e.Send(Play{Path: "book.mp3"})
	waitState(t, e, StatePlaying)

	e.Send(Seek{Position: 5 * time.Second})
	for {
		if _, ok := nextEvent(t, e).(Error); ok {
			break
		}
	}

	// Session must still respond
	e.Send(Pause{})
	waitState(t, e, StatePaused)
	if dec.closed.Load() != 0 {
		t.Error("failed seek closed the decoder")
	}
}

func TestNaturalEndEmitsTrackEndedThenStopped(t *testing.T) {
	dec := &fakeDecoder{rate: 8000, channels: 1, totalFrames: 8000} // one second
	e := newTestEngine(t, &fakeOutput{drain: true}, dec)

	e.Send(Play{Path: "book.mp3"})
	waitState(t, e, StatePlaying)

	for {
		if _, ok := nextEvent(t, e).(TrackEnded); ok {
			break
		}
	}

	// Stopped must follow immediately
	if sc, ok := nextEvent(t, e).(StateChanged); !ok || sc.State != StateStopped {
		t.Fatalf("after TrackEnded: got %#v, want StateChanged(stopped)", sc)
	}

	// And TrackEnded fires exactly once
	select {
	case ev := <-e.Events():
		if _, ok := ev.(TrackEnded); ok {
			t.Error("TrackEnded emitted twice")
		}
	case <-time.After(300 * time.Millisecond):
	}

	if dec.closed.Load() != 1 {
		t.Errorf("decoder closed %d times, want 1", dec.closed.Load())
	}
}

func TestPlayReplacesRunningSession(t *testing.T) {
	first := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 3600}
	second := &fakeDecoder{rate: 44100, channels: 2, totalFrames: 44100 * 3600}
	e := newTestEngine(t, &fakeOutput{}, first, second)

	e.Send(Play{Path: "one.mp3"})
	waitState(t, e, StatePlaying)

	e.Send(Play{Path: "two.mp3"})
	waitState(t, e, StatePlaying)

	if first.closed.Load() != 1 {
		t.Errorf("first decoder closed %d times, want 1", first.closed.Load())
	}
	if second.closed.Load() != 0 {
		t.Error("second decoder closed while playing")
	}
}

func TestBackpressureLimitsDecodeAhead(t *testing.T) {
	dec := &fakeDecoder{rate: 8000, channels: 1, totalFrames: 8000 * 3600}
	out := &fakeOutput{}
	e := newTestEngine(t, out, dec)

	e.Send(Play{Path: "book.mp3"})
	waitState(t, e, StatePlaying)

	time.Sleep(500 * time.Millisecond)

	// 3 seconds of 8kHz mono 16-bit plus at most one packet
	limit := 3*8000*2 + packetFrames*2
	out.mu.Lock()
	written := out.written
	out.mu.Unlock()
	if written > limit {
		t.Errorf("decoded %d bytes ahead, backpressure limit is %d", written, limit)
	}
}

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.1, 0.5},
		{0.5, 0.5},
		{1.0, 1.0},
		{1.25, 1.25},
		{3.0, 3.0},
		{10, 3.0},
	}
	for _, tt := range tests {
		if got := clampSpeed(tt.in); got != tt.want {
			t.Errorf("clampSpeed(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}
