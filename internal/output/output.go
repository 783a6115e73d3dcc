// Package output drives the audio device. One Device exists per playback
// session: it owns a PortAudio callback stream and the PCM ring buffer the
// engine writes into.
package output

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/drgolem/go-portaudio/portaudio"

	"shelfplayer/internal/player"
	"shelfplayer/pkg/ringbuffer"
)

const (
	framesPerBuffer = 512

	// bufferSeconds sizes the ring buffer; the engine stops decoding
	// ahead well before it fills.
	bufferSeconds = 5
)

// Initialize brings up the PortAudio subsystem. Failure here means no
// usable output device exists and the application cannot start.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	slog.Debug("PortAudio initialized", "version", portaudio.GetVersion())
	return nil
}

// Terminate shuts the PortAudio subsystem down.
func Terminate() {
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("Failed to terminate PortAudio", "error", err)
	}
}

// Opener returns a player.OutputOpener bound to a device index. A
// negative index selects the system default output device. Initialize
// must have succeeded first.
func Opener(deviceIndex int) player.OutputOpener {
	return func(sampleRate, channels, bitsPerSample int) (player.Output, error) {
		idx, err := resolveDeviceIndex(deviceIndex, portaudio.DefaultOutputDevice)
		if err != nil {
			return nil, err
		}
		return openDevice(idx, sampleRate, channels, bitsPerSample)
	}
}

// resolveDeviceIndex maps a negative configured index to the system
// default output device. PortAudio rejects negative indexes when the
// stream is opened, so resolution has to happen before the parameters
// are built.
func resolveDeviceIndex(configured int, defaultDevice func() (int, error)) (int, error) {
	if configured >= 0 {
		return configured, nil
	}
	idx, err := defaultDevice()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve default output device: %w", err)
	}
	return idx, nil
}

// Device is a running PortAudio callback stream fed from a ring buffer.
//
// Thread safety model:
//   - The engine goroutine is the producer: Write, Clear, SetPaused
//   - The PortAudio C thread is the consumer: the callback reads the ring
//     buffer and the paused flag, nothing else
type Device struct {
	ring   *ringbuffer.RingBuffer
	stream *portaudio.PaStream

	paused    atomic.Bool
	frameSize int
}

func openDevice(deviceIndex, sampleRate, channels, bitsPerSample int) (*Device, error) {
	var sampleFormat portaudio.PaSampleFormat
	switch bitsPerSample {
	case 16:
		sampleFormat = portaudio.SampleFmtInt16
	case 24:
		sampleFormat = portaudio.SampleFmtInt24
	case 32:
		sampleFormat = portaudio.SampleFmtInt32
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bitsPerSample)
	}

	frameSize := channels * bitsPerSample / 8
	d := &Device{
		ring:      ringbuffer.New(uint64(bufferSeconds * sampleRate * frameSize)),
		frameSize: frameSize,
	}

	d.stream = &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  deviceIndex,
			ChannelCount: channels,
			SampleFormat: sampleFormat,
		},
		SampleRate: float64(sampleRate),
	}

	if err := d.stream.OpenCallback(framesPerBuffer, d.audioCallback); err != nil {
		return nil, fmt.Errorf("failed to open stream with callback: %w", err)
	}
	if err := d.stream.StartStream(); err != nil {
		d.stream.CloseCallback()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	slog.Debug("Output stream opened",
		"device", deviceIndex,
		"sample_rate", sampleRate,
		"channels", channels,
		"frames_per_buffer", framesPerBuffer)

	return d, nil
}

// audioCallback is called by PortAudio to fill the output buffer.
//
// IMPORTANT: This runs on the audio thread managed by PortAudio's C
// library, not in a Go goroutine. It must be fast, must not allocate and
// must not block. Paused or underrun output is zero samples, which is
// equilibrium for signed PCM.
func (d *Device) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {

	bytesNeeded := int(frameCount) * d.frameSize

	if d.paused.Load() {
		clear(output[:bytesNeeded])
		return portaudio.Continue
	}

	n, _ := d.ring.Read(output[:bytesNeeded])
	if n < bytesNeeded {
		clear(output[n:bytesNeeded])
	}

	return portaudio.Continue
}

// Write buffers PCM for the callback. All-or-nothing; a full buffer
// reports player.ErrOutputFull so the engine backs off and retries.
func (d *Device) Write(pcm []byte) (int, error) {
	n, err := d.ring.Write(pcm)
	if err == ringbuffer.ErrInsufficientSpace {
		return 0, player.ErrOutputFull
	}
	return n, err
}

// SetPaused flips the callback to silence without touching buffered audio
func (d *Device) SetPaused(paused bool) {
	d.paused.Store(paused)
}

// BufferedBytes returns approximately how much PCM is queued
func (d *Device) BufferedBytes() int {
	return int(d.ring.AvailableRead())
}

// Clear discards buffered audio. Safe against a concurrently reading
// callback; see ringbuffer.Clear.
func (d *Device) Clear() {
	d.ring.Clear()
}

// Close stops and tears down the stream.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.StopStream(); err != nil {
		slog.Warn("Failed to stop stream", "error", err)
	}
	if err := d.stream.CloseCallback(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	d.stream = nil
	return nil
}
