package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"shelfplayer/internal/artwork"
)

func nextWorkerEvent(t *testing.T, w *Worker) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker event")
		return nil
	}
}

// The worker must resolve which track covers the requested book-global
// position and report the position inside that track.
func TestDownloadForPlaybackResolvesTrack(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/items/book1":
			json.NewEncoder(w).Encode(LibraryItem{
				ID: "book1",
				Media: &Media{
					Tracks: []AudioTrack{
						{Index: 0, StartOffset: 0, Duration: 100, ContentURL: "/t0", MimeType: "audio/mpeg"},
						{Index: 1, StartOffset: 100, Duration: 50, ContentURL: "/t1", MimeType: "audio/mpeg"},
					},
				},
			})
		case "/t1":
			w.Write([]byte("track-one"))
		default:
			http.NotFound(w, r)
		}
	}))

	worker := NewWorker(c, nil)
	worker.Start()
	defer worker.Close()

	worker.Send(DownloadForPlayback{ItemID: "book1", Position: 120})

	ev := nextWorkerEvent(t, worker)
	df, ok := ev.(DownloadFinished)
	if !ok {
		t.Fatalf("expected DownloadFinished, got %#v", ev)
	}
	if df.Track.Index != 1 || df.Track.StartOffset != 100 || df.Track.Duration != 50 {
		t.Errorf("track info: got %+v", df.Track)
	}
	if df.LocalPosition != 20 {
		t.Errorf("local position: got %v, want 20", df.LocalPosition)
	}
	if df.Track.SingleFile() {
		t.Error("multi-track download reported as single file")
	}
}

// Positions past the last track fall back to the first track at offset 0.
func TestDownloadForPlaybackFallsBackToFirstTrack(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/items/book1":
			json.NewEncoder(w).Encode(LibraryItem{
				ID: "book1",
				Media: &Media{
					Tracks: []AudioTrack{
						{Index: 0, StartOffset: 0, Duration: 100, ContentURL: "/t0", MimeType: "audio/mpeg"},
					},
				},
			})
		case "/t0":
			w.Write([]byte("track-zero"))
		default:
			http.NotFound(w, r)
		}
	}))

	worker := NewWorker(c, nil)
	worker.Start()
	defer worker.Close()

	worker.Send(DownloadForPlayback{ItemID: "book1", Position: 500})

	df, ok := nextWorkerEvent(t, worker).(DownloadFinished)
	if !ok {
		t.Fatal("expected DownloadFinished")
	}
	if df.Track.Index != 0 {
		t.Errorf("track index: got %d, want 0", df.Track.Index)
	}
	if df.LocalPosition != 500 {
		t.Errorf("local position: got %v, want 500", df.LocalPosition)
	}
}

// Books without a track list go through the single-file play session.
func TestDownloadForPlaybackSingleFile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/items/book1":
			json.NewEncoder(w).Encode(LibraryItem{ID: "book1", Media: &Media{}})
		case "/api/items/book1/play":
			var req playSessionRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.DeviceInfo.ClientName != clientName || req.DeviceInfo.DeviceID == "" {
				t.Errorf("device info: got %+v", req.DeviceInfo)
			}
			json.NewEncoder(w).Encode(playSessionResponse{
				ID: "sess1",
				AudioTracks: []AudioTrack{
					{Index: 0, ContentURL: "/hls/file", MimeType: "audio/flac"},
				},
			})
		case "/hls/file":
			w.Write([]byte("whole-book"))
		default:
			http.NotFound(w, r)
		}
	}))

	worker := NewWorker(c, nil)
	worker.Start()
	defer worker.Close()

	worker.Send(DownloadForPlayback{ItemID: "book1", Position: 42})

	df, ok := nextWorkerEvent(t, worker).(DownloadFinished)
	if !ok {
		t.Fatal("expected DownloadFinished")
	}
	if !df.Track.SingleFile() {
		t.Errorf("expected single-file track info, got %+v", df.Track)
	}
	if df.LocalPosition != 42 {
		t.Errorf("local position: got %v, want 42", df.LocalPosition)
	}
}

// A configured cover downloader produces a CoverLoaded event after the
// track download.
func TestDownloadForPlaybackFetchesCover(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/items/book1":
			json.NewEncoder(w).Encode(LibraryItem{
				ID: "book1",
				Media: &Media{
					Tracks: []AudioTrack{
						{Index: 0, StartOffset: 0, Duration: 100, ContentURL: "/t0", MimeType: "audio/mpeg"},
					},
				},
			})
		case "/t0":
			w.Write([]byte("track-zero"))
		case "/api/items/book1/cover":
			w.Write([]byte("jpeg-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))

	covers, err := artwork.NewDownloader(t.TempDir())
	if err != nil {
		t.Fatalf("NewDownloader failed: %v", err)
	}

	worker := NewWorker(c, covers)
	worker.Start()
	defer worker.Close()

	worker.Send(DownloadForPlayback{ItemID: "book1", Position: 0})

	if _, ok := nextWorkerEvent(t, worker).(DownloadFinished); !ok {
		t.Fatal("expected DownloadFinished first")
	}
	cover, ok := nextWorkerEvent(t, worker).(CoverLoaded)
	if !ok {
		t.Fatal("expected CoverLoaded after the download")
	}
	if cover.ItemID != "book1" || cover.Path == "" {
		t.Errorf("cover event: got %+v", cover)
	}
}

func TestWorkerReportsErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	worker := NewWorker(c, nil)
	worker.Start()
	defer worker.Close()

	worker.Send(FetchLibraries{})

	if _, ok := nextWorkerEvent(t, worker).(Err); !ok {
		t.Error("expected Err event for failing fetch")
	}
}
