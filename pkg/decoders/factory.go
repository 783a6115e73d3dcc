package decoders

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shelfplayer/pkg/decoders/flac"
	"shelfplayer/pkg/decoders/mp3"
	"shelfplayer/pkg/decoders/vorbis"
	"shelfplayer/pkg/decoders/wav"
)

// NewDecoder creates and opens the appropriate decoder for the file.
// Dispatch is by extension (.mp3, .flac, .fla, .ogg, .oga, .wav); any other
// extension falls back to content sniffing, so cache files with
// server-derived names still open.
// Returns an opened decoder ready for use.
func NewDecoder(fileName string) (AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	var decoder AudioDecoder

	switch ext {
	case ".mp3":
		decoder = mp3.NewDecoder()
	case ".flac", ".fla":
		decoder = flac.NewDecoder()
	case ".ogg", ".oga":
		decoder = vorbis.NewDecoder()
	case ".wav":
		decoder = wav.NewDecoder()
	default:
		var err error
		decoder, err = sniffDecoder(fileName)
		if err != nil {
			return nil, err
		}
	}

	if err := decoder.Open(fileName); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	return decoder, nil
}

// sniffDecoder picks a decoder from the first bytes of the file.
func sniffDecoder(fileName string) (AudioDecoder, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fileName, err)
	}
	defer f.Close()

	magic := make([]byte, 12)
	n, err := f.Read(magic)
	if err != nil || n < 4 {
		return nil, fmt.Errorf("failed to probe %s: too short", fileName)
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, []byte("fLaC")):
		return flac.NewDecoder(), nil
	case bytes.HasPrefix(magic, []byte("OggS")):
		return vorbis.NewDecoder(), nil
	case bytes.HasPrefix(magic, []byte("RIFF")):
		return wav.NewDecoder(), nil
	case bytes.HasPrefix(magic, []byte("ID3")),
		len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return mp3.NewDecoder(), nil
	}

	return nil, fmt.Errorf("unsupported file format: %s (supported: mp3, flac, ogg-vorbis, wav)", fileName)
}
