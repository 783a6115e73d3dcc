package vorbis

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jfreymuth/oggvorbis"

	"shelfplayer/pkg/decoders/internal/pcm"
)

// Decoder wraps jfreymuth/oggvorbis for decoding Ogg Vorbis audio files.
// Implements decoders.AudioDecoder.
type Decoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	rate     int
	channels int
	floats   []float32
}

// NewDecoder creates a new Ogg Vorbis decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens an Ogg Vorbis file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open Ogg file: %w", err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to parse Ogg Vorbis stream: %w", err)
	}

	d.file = file
	d.reader = reader
	d.rate = reader.SampleRate()
	d.channels = reader.Channels()

	return nil
}

// Close closes the Ogg file
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

// DecodeSamples decodes up to 'samples' frames of 16-bit PCM into audio
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	frameBytes := d.channels * 2
	want := samples * frameBytes
	if want > len(audio) {
		want = len(audio) / frameBytes * frameBytes
	}

	wantFloats := want / 2
	if cap(d.floats) < wantFloats {
		d.floats = make([]float32, wantFloats)
	}
	buf := d.floats[:wantFloats]

	total := 0
	for total < wantFloats {
		n, err := d.reader.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF && total > 0 {
				break
			}
			return total * 2 / frameBytes, err
		}
	}

	for i := 0; i < total; i++ {
		pcm.PutInt16LE(audio[i*2:], pcm.FloatTo16(buf[i]))
	}

	return total * 2 / frameBytes, nil
}

// Seek repositions the stream to the frame at the given position
func (d *Decoder) Seek(position time.Duration) error {
	if d.reader == nil {
		return fmt.Errorf("decoder not initialized")
	}

	sampleNum := int64(position.Seconds() * float64(d.rate))
	if err := d.reader.SetPosition(sampleNum); err != nil {
		return fmt.Errorf("vorbis seek to %v: %w", position, err)
	}
	return nil
}

// Duration returns the total stream duration
func (d *Decoder) Duration() (time.Duration, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	n := d.reader.Length()
	if n <= 0 {
		return 0, fmt.Errorf("vorbis stream length unknown")
	}
	return time.Duration(n) * time.Second / time.Duration(d.rate), nil
}
