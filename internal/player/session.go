package player

import (
	"bytes"
	"fmt"
	"time"

	"github.com/zaf/resample"

	"shelfplayer/pkg/decoders"
)

// Output is what a session writes decoded PCM into. The production
// implementation wraps a PortAudio callback stream; tests substitute a fake.
type Output interface {
	// Write buffers interleaved 16-bit PCM. All-or-nothing: when the
	// buffer cannot take len(pcm) bytes it returns ErrOutputFull.
	Write(pcm []byte) (int, error)

	// SetPaused switches the device callback to silence without
	// discarding buffered audio.
	SetPaused(paused bool)

	// BufferedBytes returns approximately how much PCM is queued.
	BufferedBytes() int

	// Clear discards all buffered audio. Safe to call while the device
	// callback is draining.
	Clear()

	Close() error
}

// OutputOpener opens a device output for a session's stream format.
type OutputOpener func(sampleRate, channels, bitsPerSample int) (Output, error)

// packetFrames is how many frames one control-loop iteration decodes.
const packetFrames = 1024

// session is one open stream: decoder, device output and position state.
// Owned entirely by the engine goroutine.
type session struct {
	decoder  decoders.AudioDecoder
	output   Output
	rate     int
	channels int

	// framesDecoded counts source frames handed to the output since the
	// start of the stream; the reported position derives from it, never
	// from wall clock.
	framesDecoded uint64

	speed       float64
	resampler   *resample.Resampler
	resampleOut bytes.Buffer

	decodeBuf []byte
}

func newSession(decoder decoders.AudioDecoder, output Output, speed float64) (*session, error) {
	rate, channels, _ := decoder.GetFormat()

	s := &session{
		decoder:   decoder,
		output:    output,
		rate:      rate,
		channels:  channels,
		speed:     1.0,
		decodeBuf: make([]byte, packetFrames*channels*2),
	}
	if err := s.setSpeed(speed); err != nil {
		return nil, err
	}
	return s, nil
}

// frameBytes is the size of one interleaved 16-bit frame
func (s *session) frameBytes() int {
	return s.channels * 2
}

// bytesPerSecond is the output data rate at normal speed
func (s *session) bytesPerSecond() int {
	return s.rate * s.frameBytes()
}

// position converts the decoded-frame counter to a stream position
func (s *session) position() time.Duration {
	return time.Duration(s.framesDecoded) * time.Second / time.Duration(s.rate)
}

// seek repositions the decoder and rebases the frame counter on the target.
// The output buffer must be cleared by the caller before this runs.
func (s *session) seek(position time.Duration) error {
	if err := s.decoder.Seek(position); err != nil {
		return err
	}
	s.framesDecoded = uint64(position.Seconds() * float64(s.rate))
	s.resetResampler()
	return nil
}

// setSpeed reconfigures the speed path. Playback at factor f resamples the
// stream from rate to rate/f and plays the result at the device rate, so
// f > 1 shortens playback. Position accounting stays in source frames.
func (s *session) setSpeed(factor float64) error {
	s.speed = clampSpeed(factor)
	return s.resetResampler()
}

func clampSpeed(factor float64) float64 {
	if factor < 0.5 {
		return 0.5
	}
	if factor > 3.0 {
		return 3.0
	}
	return factor
}

func (s *session) resetResampler() error {
	if s.resampler != nil {
		s.resampler.Close()
		s.resampler = nil
	}
	s.resampleOut.Reset()
	if s.speed == 1.0 {
		return nil
	}

	r, err := resample.New(&s.resampleOut,
		float64(s.rate), float64(s.rate)/s.speed,
		s.channels, resample.I16, resample.MediumQ)
	if err != nil {
		return fmt.Errorf("failed to create resampler: %w", err)
	}
	s.resampler = r
	return nil
}

// process runs one packet of decoded PCM through the speed path.
// The returned slice is only valid until the next call.
func (s *session) process(pcm []byte) ([]byte, error) {
	if s.resampler == nil {
		return pcm, nil
	}

	s.resampleOut.Reset()
	if _, err := s.resampler.Write(pcm); err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return s.resampleOut.Bytes(), nil
}

func (s *session) close() {
	if s.resampler != nil {
		s.resampler.Close()
		s.resampler = nil
	}
	if s.output != nil {
		s.output.Close()
	}
	if s.decoder != nil {
		s.decoder.Close()
	}
}
