// Package library scans local directories for audio files and reads
// their metadata tags.
package library

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"
)

// Entry is one scanned audio file.
type Entry struct {
	Path   string
	Title  string
	Artist string
	Album  string
	Year   int
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".fla":  true,
	".ogg":  true,
	".oga":  true,
	".wav":  true,
}

// Scan walks root for audio files and reads their tags, sorted by path.
// Files without readable tags fall back to the file name as title.
func Scan(root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		entries = append(entries, readEntry(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// readEntry reads the tags of one file. Tag failures are not errors; the
// file is still playable, just untitled.
func readEntry(path string) Entry {
	entry := Entry{
		Path:  path,
		Title: filepath.Base(path),
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Failed to open audio file", "path", path, "error", err)
		return entry
	}
	defer f.Close()

	metadata, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("No readable tags", "path", path)
		return entry
	}

	if title := metadata.Title(); title != "" {
		entry.Title = title
	}
	entry.Artist = metadata.Artist()
	entry.Album = metadata.Album()
	entry.Year = metadata.Year()
	return entry
}
