package player

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"shelfplayer/pkg/decoders"
)

// Timing of the control loop: idleSleep when there is nothing to do,
// backpressureSleep when the output buffer holds more than
// backpressureWindow of audio, drainSleep while waiting for the device to
// play out the tail of a finished stream.
const (
	idleSleep          = 50 * time.Millisecond
	backpressureSleep  = 10 * time.Millisecond
	drainSleep         = 50 * time.Millisecond
	backpressureWindow = 3 * time.Second
	positionInterval   = 100 * time.Millisecond
)

// ErrOutputFull is returned by Output.Write when the buffer cannot take the
// whole packet.
var ErrOutputFull = errors.New("output buffer full")

// DecoderOpener opens a decoder for a file. The default is
// decoders.NewDecoder; tests substitute fakes.
type DecoderOpener func(path string) (decoders.AudioDecoder, error)

// Engine runs playback on a dedicated goroutine. Commands go in through
// Send, results come out of Events. At most one session is active; Play
// replaces it.
type Engine struct {
	cmds   chan Command
	events chan Event
	quit   chan struct{}

	openOutput  OutputOpener
	openDecoder DecoderOpener

	// speed carries the playback rate across sessions.
	// Only the control-loop goroutine touches it.
	speed float64

	log *slog.Logger
}

// New creates an engine. It does not start the control loop; call Start.
func New(openOutput OutputOpener, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cmds:        make(chan Command, 16),
		events:      make(chan Event, 64),
		quit:        make(chan struct{}),
		openOutput:  openOutput,
		openDecoder: decoders.NewDecoder,
		speed:       1.0,
		log:         log,
	}
}

// Start launches the control loop goroutine.
func (e *Engine) Start() {
	go e.run()
}

// Close terminates the control loop and releases the active session.
func (e *Engine) Close() {
	close(e.quit)
}

// Send queues a command for the control loop.
func (e *Engine) Send(cmd Command) {
	select {
	case e.cmds <- cmd:
	case <-e.quit:
	}
}

// Events returns the engine's event stream.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	case <-e.quit:
	}
}

// run is the control loop. One iteration: drain one pending command, then
// either idle, hold off on a full buffer, or decode one packet.
func (e *Engine) run() {
	var sess *session
	paused := false
	lastPosition := time.Time{}

	for {
		select {
		case <-e.quit:
			if sess != nil {
				sess.close()
			}
			return
		case cmd := <-e.cmds:
			sess, paused = e.apply(cmd, sess, paused)
			continue
		default:
		}

		if sess == nil || paused {
			time.Sleep(idleSleep)
			continue
		}

		if sess.output.BufferedBytes() > int(backpressureWindow.Seconds())*sess.bytesPerSecond() {
			time.Sleep(backpressureSleep)
			continue
		}

		sess = e.step(sess, &lastPosition)
	}
}

// apply handles one command and returns the session and paused flag that
// result from it.
func (e *Engine) apply(cmd Command, sess *session, paused bool) (*session, bool) {
	switch c := cmd.(type) {
	case Play:
		if sess != nil {
			sess.close()
		}
		return e.openSession(c), false

	case Pause:
		if sess != nil && !paused {
			sess.output.SetPaused(true)
			e.emit(StateChanged{State: StatePaused})
			return sess, true
		}

	case Resume:
		if sess != nil && paused {
			sess.output.SetPaused(false)
			e.emit(StateChanged{State: StatePlaying})
			return sess, false
		}

	case Stop:
		if sess != nil {
			sess.output.Clear()
			sess.close()
			e.emit(StateChanged{State: StateStopped})
			return nil, false
		}

	case Seek:
		if sess == nil {
			break
		}
		sess.output.Clear()
		if err := sess.seek(c.Position); err != nil {
			// Session survives; playback continues from where it was
			e.log.Warn("Seek failed", "position", c.Position, "error", err)
			e.emit(Error{Message: err.Error()})
			break
		}
		e.emit(PositionUpdate{Position: sess.position()})

	case SetSpeed:
		e.speed = clampSpeed(c.Factor)
		if sess != nil {
			if err := sess.setSpeed(e.speed); err != nil {
				e.emit(Error{Message: err.Error()})
			}
		}
	}

	return sess, paused
}

// openSession opens decoder and output for a Play command. Any failure is
// fatal for the command: Error then StateChanged(StateStopped).
func (e *Engine) openSession(c Play) *session {
	e.emit(StateChanged{State: StateLoading})

	decoder, err := e.openDecoder(c.Path)
	if err != nil {
		e.log.Error("Failed to open audio file", "path", c.Path, "error", err)
		e.emit(Error{Message: err.Error()})
		e.emit(StateChanged{State: StateStopped})
		return nil
	}

	rate, channels, bps := decoder.GetFormat()
	e.log.Info("Audio file opened",
		"path", c.Path,
		"sample_rate", rate,
		"channels", channels,
		"bits_per_sample", bps)

	if duration, err := decoder.Duration(); err == nil {
		e.emit(DurationChanged{Duration: duration})
	} else {
		e.log.Warn("Stream duration unknown", "path", c.Path, "error", err)
	}

	output, err := e.openOutput(rate, channels, bps)
	if err != nil {
		decoder.Close()
		e.log.Error("Failed to open audio output", "error", err)
		e.emit(Error{Message: err.Error()})
		e.emit(StateChanged{State: StateStopped})
		return nil
	}

	sess, err := newSession(decoder, output, e.speed)
	if err != nil {
		decoder.Close()
		output.Close()
		e.emit(Error{Message: err.Error()})
		e.emit(StateChanged{State: StateStopped})
		return nil
	}

	if c.Position > 0 {
		if err := sess.seek(c.Position); err != nil {
			e.log.Warn("Start position seek failed, playing from the top",
				"position", c.Position, "error", err)
		}
	}

	e.emit(StateChanged{State: StatePlaying})
	e.emit(PositionUpdate{Position: sess.position()})
	return sess
}

// step decodes one packet and feeds it to the output. Returns nil when the
// stream ends or fails fatally.
func (e *Engine) step(sess *session, lastPosition *time.Time) *session {
	n, err := sess.decoder.DecodeSamples(packetFrames, sess.decodeBuf)

	if n > 0 {
		pcm := sess.decodeBuf[:n*sess.frameBytes()]
		out, perr := sess.process(pcm)
		if perr != nil {
			e.emit(Error{Message: perr.Error()})
			sess.close()
			e.emit(StateChanged{State: StateStopped})
			return nil
		}
		if werr := e.writeAll(sess, out); werr != nil {
			if werr != errEngineClosed {
				e.emit(Error{Message: werr.Error()})
				sess.close()
				e.emit(StateChanged{State: StateStopped})
			}
			return nil
		}
		sess.framesDecoded += uint64(n)

		if time.Since(*lastPosition) >= positionInterval {
			e.emit(PositionUpdate{Position: sess.position()})
			*lastPosition = time.Now()
		}
	}

	if err != nil {
		switch {
		case err == io.EOF:
			return e.finish(sess)
		case errors.Is(err, decoders.ErrDecode):
			// Local corruption: skip the packet and keep going
			e.log.Debug("Skipping undecodable packet", "error", err)
		default:
			e.log.Error("Decode failed", "error", err)
			e.emit(Error{Message: err.Error()})
			sess.close()
			e.emit(StateChanged{State: StateStopped})
			return nil
		}
	}

	return sess
}

var errEngineClosed = errors.New("engine closed")

// writeAll pushes one processed packet into the output, waiting out
// transient full-buffer conditions.
func (e *Engine) writeAll(sess *session, pcm []byte) error {
	for {
		_, err := sess.output.Write(pcm)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrOutputFull) {
			return err
		}
		select {
		case <-e.quit:
			sess.close()
			return errEngineClosed
		case <-time.After(backpressureSleep):
		}
	}
}

// finish lets the buffered tail play out, then reports the natural end of
// the stream.
func (e *Engine) finish(sess *session) *session {
	for sess.output.BufferedBytes() > 0 {
		select {
		case <-e.quit:
			sess.close()
			return nil
		case <-time.After(drainSleep):
		}
	}

	sess.close()
	e.emit(TrackEnded{})
	e.emit(StateChanged{State: StateStopped})
	return nil
}
