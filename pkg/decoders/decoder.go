package decoders

import (
	"time"

	"shelfplayer/pkg/decoders/internal/pcm"
)

// AudioDecoder is the capability interface a playback session needs from a
// codec backend. All implementations emit interleaved signed 16-bit
// little-endian PCM regardless of the source bit depth.
//
// DecodeSamples returns io.EOF (possibly with a final short count) at end of
// stream. Errors wrapping ErrDecode are local corruption: the caller may log
// them and keep decoding. Any other error ends the session.
type AudioDecoder interface {
	Open(fileName string) error
	Close() error

	// GetFormat returns the stream format. BitsPerSample is always 16.
	GetFormat() (rate, channels, bitsPerSample int)

	// DecodeSamples decodes up to 'samples' frames into audio.
	// The buffer must hold at least samples * channels * 2 bytes.
	// Returns the number of frames decoded.
	DecodeSamples(samples int, audio []byte) (int, error)

	// Seek repositions the stream at or before the given position.
	// The next DecodeSamples returns frames from the new position.
	Seek(position time.Duration) error

	// Duration returns the total stream duration.
	Duration() (time.Duration, error)
}

// ErrDecode marks a recoverable decode error local to one packet.
var ErrDecode = pcm.ErrDecode
