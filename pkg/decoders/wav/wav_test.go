package wav

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/youpy/go-wav"
)

// writeTestWav writes one second of a 440Hz sine, 16-bit mono 8000Hz.
func writeTestWav(t *testing.T) string {
	t.Helper()

	const (
		rate       = 8000
		numSamples = rate
	)

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	w := wav.NewWriter(f, numSamples, 1, rate, 16)
	data := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		s := int16(10000 * math.Sin(2*math.Pi*440*float64(i)/rate))
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write samples: %v", err)
	}

	return path
}

func TestOpenReportsFormat(t *testing.T) {
	d := NewDecoder()
	if err := d.Open(writeTestWav(t)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	rate, channels, bps := d.GetFormat()
	if rate != 8000 || channels != 1 || bps != 16 {
		t.Errorf("GetFormat: got (%d, %d, %d), want (8000, 1, 16)", rate, channels, bps)
	}

	dur, err := d.Duration()
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if dur != time.Second {
		t.Errorf("Duration: got %v, want 1s", dur)
	}
}

func TestDecodeSamples(t *testing.T) {
	d := NewDecoder()
	if err := d.Open(writeTestWav(t)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	buf := make([]byte, 1024*2)
	total := 0
	for {
		n, err := d.DecodeSamples(1024, buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("DecodeSamples failed: %v", err)
		}
	}

	if total != 8000 {
		t.Errorf("decoded %d frames, want 8000", total)
	}
}

func TestSeekResumesAtPosition(t *testing.T) {
	d := NewDecoder()
	if err := d.Open(writeTestWav(t)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	if err := d.Seek(500 * time.Millisecond); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	// Half the stream should remain
	buf := make([]byte, 1024*2)
	total := 0
	for {
		n, err := d.DecodeSamples(1024, buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("DecodeSamples failed: %v", err)
		}
	}

	if total != 4000 {
		t.Errorf("decoded %d frames after seek, want 4000", total)
	}
}

func TestSeekBackward(t *testing.T) {
	d := NewDecoder()
	if err := d.Open(writeTestWav(t)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	buf := make([]byte, 4096*2)
	if _, err := d.DecodeSamples(4096, buf); err != nil {
		t.Fatalf("DecodeSamples failed: %v", err)
	}

	if err := d.Seek(0); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	total := 0
	for {
		n, err := d.DecodeSamples(4096, buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("DecodeSamples failed: %v", err)
		}
	}
	if total != 8000 {
		t.Errorf("decoded %d frames after rewind, want 8000", total)
	}
}
