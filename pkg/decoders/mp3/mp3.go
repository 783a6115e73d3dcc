package mp3

import (
	"fmt"
	"io"
	"os"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always outputs 16-bit stereo regardless of the source layout.
const (
	numChannels   = 2
	bytesPerFrame = 4
)

// Decoder wraps go-mp3 for decoding MP3 audio files.
// Implements decoders.AudioDecoder.
type Decoder struct {
	file    *os.File
	decoder *gomp3.Decoder
	src     io.ReadSeeker
	rate    int

	// pending carries partial-frame bytes between calls when a read
	// returns a count not aligned to the 4-byte frame
	pending []byte
}

// NewDecoder creates a new MP3 decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens an MP3 file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := gomp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to parse MP3 stream: %w", err)
	}

	d.file = file
	d.decoder = decoder
	d.src = decoder
	d.rate = decoder.SampleRate()

	return nil
}

// Close closes the MP3 file
func (d *Decoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// GetFormat returns the audio format (sample rate, channels, bits per sample)
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, numChannels, 16
}

// DecodeSamples decodes up to 'samples' frames of 16-bit PCM into audio
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.src == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	want := samples * bytesPerFrame
	if want > len(audio) {
		want = len(audio) / bytesPerFrame * bytesPerFrame
	}

	total := copy(audio[:want], d.pending)
	d.pending = d.pending[:0]

	eof := false
	for total < want {
		n, err := d.src.Read(audio[total:want])
		total += n
		if err == io.EOF {
			eof = true
			break
		}
		if err != nil {
			return total / bytesPerFrame, err
		}
	}

	frames := total / bytesPerFrame
	if rem := total % bytesPerFrame; rem != 0 {
		d.pending = append(d.pending, audio[total-rem:total]...)
	}
	if frames == 0 && eof {
		return 0, io.EOF
	}
	return frames, nil
}

// Seek repositions the stream to the frame at the given position
func (d *Decoder) Seek(position time.Duration) error {
	if d.src == nil {
		return fmt.Errorf("decoder not initialized")
	}

	offset := int64(position.Seconds()*float64(d.rate)) * bytesPerFrame

	if _, err := d.src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek to %v: %w", position, err)
	}
	d.pending = d.pending[:0]
	return nil
}

// Duration returns the total stream duration, derived from the decoded
// PCM byte length
func (d *Decoder) Duration() (time.Duration, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	length := d.decoder.Length()
	if length <= 0 {
		return 0, fmt.Errorf("mp3 stream length unknown")
	}

	frames := length / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(d.rate), nil
}
