package flac

import (
	"fmt"
	"io"
	"os"
	"time"

	goflac "github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"shelfplayer/pkg/decoders/internal/pcm"
)

// Decoder wraps mewkiz/flac for decoding FLAC audio files.
// Implements decoders.AudioDecoder. Output is normalized to 16-bit PCM
// whatever the source bit depth.
type Decoder struct {
	file     *os.File
	stream   *goflac.Stream
	rate     int
	channels int
	bps      int
	pending  []byte
}

// NewDecoder creates a new FLAC decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens a FLAC file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := goflac.NewSeek(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to parse FLAC stream: %w", err)
	}

	d.file = file
	d.stream = stream
	d.rate = int(stream.Info.SampleRate)
	d.channels = int(stream.Info.NChannels)
	d.bps = int(stream.Info.BitsPerSample)
	d.pending = nil

	return nil
}

// Close closes the FLAC file
func (d *Decoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// GetFormat returns the audio format (sample rate, channels, bits per sample)
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.channels, 16
}

// DecodeSamples decodes up to 'samples' frames of 16-bit PCM into audio.
// FLAC block sizes rarely line up with the request, so the tail of a
// decoded block is kept between calls.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.stream == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	frameBytes := d.channels * 2
	want := samples * frameBytes
	if want > len(audio) {
		want = len(audio) / frameBytes * frameBytes
	}

	total := 0
	for total < want {
		if len(d.pending) > 0 {
			n := copy(audio[total:want], d.pending)
			d.pending = d.pending[n:]
			total += n
			continue
		}

		blk, err := d.stream.Next()
		if err != nil {
			if err == io.EOF {
				if total > 0 {
					break
				}
				return 0, io.EOF
			}
			return total / frameBytes, fmt.Errorf("%w: flac frame: %v", pcm.ErrDecode, err)
		}

		d.pending = d.interleave(d.pending[:0], blk)
	}

	return total / frameBytes, nil
}

// interleave appends one decoded FLAC block as 16-bit little-endian PCM
func (d *Decoder) interleave(dst []byte, blk *frame.Frame) []byte {
	if len(blk.Subframes) == 0 {
		return dst
	}
	blockSize := len(blk.Subframes[0].Samples)
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < d.channels && ch < len(blk.Subframes); ch++ {
			s := pcm.To16(blk.Subframes[ch].Samples[i], d.bps)
			dst = pcm.AppendInt16LE(dst, s)
		}
	}
	return dst
}

// Seek repositions the stream at or before the frame containing position
func (d *Decoder) Seek(position time.Duration) error {
	if d.stream == nil {
		return fmt.Errorf("decoder not initialized")
	}

	sampleNum := uint64(position.Seconds() * float64(d.rate))
	if _, err := d.stream.Seek(sampleNum); err != nil {
		return fmt.Errorf("flac seek to %v: %w", position, err)
	}
	d.pending = nil
	return nil
}

// Duration returns the total stream duration from the stream info block
func (d *Decoder) Duration() (time.Duration, error) {
	if d.stream == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	n := d.stream.Info.NSamples
	if n == 0 {
		return 0, fmt.Errorf("flac stream length unknown")
	}
	return time.Duration(n) * time.Second / time.Duration(d.rate), nil
}
