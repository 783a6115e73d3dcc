package wav

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/youpy/go-wav"

	"shelfplayer/pkg/decoders/internal/pcm"
)

// Decoder wraps go-wav for decoding WAV audio files.
// Implements decoders.AudioDecoder. Source depths of 8, 24 and 32 bits are
// narrowed to the 16-bit output format.
type Decoder struct {
	file     *os.File
	reader   *wav.Reader
	rate     int
	channels int
	srcBits  int
	duration time.Duration
}

// NewDecoder creates a new WAV decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens a WAV file for decoding
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open WAV file: %w", err)
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to read WAV format: %w", err)
	}

	if format.AudioFormat != wav.AudioFormatPCM {
		file.Close()
		return fmt.Errorf("unsupported WAV format: %d (only PCM supported)", format.AudioFormat)
	}

	duration, err := reader.Duration()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to read WAV duration: %w", err)
	}

	d.file = file
	d.reader = reader
	d.rate = int(format.SampleRate)
	d.channels = int(format.NumChannels)
	d.srcBits = int(format.BitsPerSample)
	d.duration = duration

	return nil
}

// Close closes the WAV file
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
	if max := len(audio) / frameBytes; samples > max {
		samples = max
	}
	if samples == 0 {
		return 0, nil
	}

	frames, err := d.reader.ReadSamples(uint32(samples))
	if len(frames) == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	for i, frame := range frames {
		for ch := 0; ch < d.channels && ch < len(frame.Values); ch++ {
			s := d.to16(frame.Values[ch])
			pcm.PutInt16LE(audio[(i*d.channels+ch)*2:], s)
		}
	}

	return len(frames), nil
}

// to16 narrows one source sample to 16 bits. WAV stores 8-bit audio
// unsigned, everything wider signed.
func (d *Decoder) to16(v int) int16 {
	if d.srcBits == 8 {
		return int16((v - 128) << 8)
	}
	return pcm.To16(int32(v), d.srcBits)
}

// Seek repositions the stream to the frame at the given position.
// go-wav has no random access, so the file is rewound and frames before
// the target are read and discarded.
func (d *Decoder) Seek(position time.Duration) error {
	if d.file == nil {
		return fmt.Errorf("decoder not initialized")
	}

	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wav seek to %v: %w", position, err)
	}
	reader := wav.NewReader(d.file)
	if _, err := reader.Format(); err != nil {
		return fmt.Errorf("wav seek to %v: %w", position, err)
	}

	skip := int64(position.Seconds() * float64(d.rate))
	for skip > 0 {
		chunk := skip
		if chunk > 4096 {
			chunk = 4096
		}
		frames, err := reader.ReadSamples(uint32(chunk))
		if err == io.EOF || len(frames) == 0 {
			break
		}
		if err != nil {
			return fmt.Errorf("wav seek to %v: %w", position, err)
		}
		skip -= int64(len(frames))
	}

	d.reader = reader
	return nil
}

// Duration returns the total stream duration
func (d *Decoder) Duration() (time.Duration, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}
	return d.duration, nil
}
