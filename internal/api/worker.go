package api

import (
	"log/slog"

	"shelfplayer/internal/artwork"
)

// Command is a request handled by the worker goroutine.
type Command interface {
	isCommand()
}

// FetchLibraries lists the server's libraries.
type FetchLibraries struct{}

// FetchLibraryItems lists the items of one library.
type FetchLibraryItems struct {
	LibraryID string
}

// FetchItemChapters fetches the chapter list of one item.
type FetchItemChapters struct {
	ItemID string
}

// DownloadForPlayback resolves which track of the item covers the
// book-global Position, downloads it and reports the local position to
// start from.
type DownloadForPlayback struct {
	ItemID   string
	Position float64
}

// FetchContinueListening resolves the continue-listening shelf head.
type FetchContinueListening struct {
	LibraryID string
}

// UpdateProgress reports listening progress to the server.
type UpdateProgress struct {
	ItemID      string
	CurrentTime float64
	Duration    float64
	IsFinished  bool
}

func (FetchLibraries) isCommand()         {}
func (FetchLibraryItems) isCommand()      {}
func (FetchItemChapters) isCommand()      {}
func (DownloadForPlayback) isCommand()    {}
func (FetchContinueListening) isCommand() {}
func (UpdateProgress) isCommand()         {}

// Event is a worker result.
type Event interface {
	isEvent()
}

// LibrariesLoaded delivers the library list.
type LibrariesLoaded struct {
	Libraries []Library
}

// ItemsLoaded delivers the items of the requested library.
type ItemsLoaded struct {
	Items []LibraryItem
}

// ChaptersLoaded delivers the chapters of the requested item.
type ChaptersLoaded struct {
	Chapters []Chapter
}

// DownloadFinished reports a playable local file. LocalPosition is where
// inside that file playback should start; Track places the file on the
// book-global timeline.
type DownloadFinished struct {
	Path          string
	LocalPosition float64
	Track         TrackInfo
}

// ContinueListeningLoaded delivers the item to auto-resume with its saved
// book-global position.
type ContinueListeningLoaded struct {
	Item     LibraryItem
	Position float64
}

// CoverLoaded reports the cached cover image of the playing item.
type CoverLoaded struct {
	ItemID string
	Path   string
}

// Err reports a failed command.
type Err struct {
	Message string
}

func (LibrariesLoaded) isEvent()         {}
func (ItemsLoaded) isEvent()             {}
func (ChaptersLoaded) isEvent()          {}
func (DownloadFinished) isEvent()        {}
func (ContinueListeningLoaded) isEvent() {}
func (CoverLoaded) isEvent()             {}
func (Err) isEvent()                     {}

// Worker serializes API calls on one goroutine. Commands are
// fire-and-forget; results and errors come back as events.
type Worker struct {
	client *Client
	covers *artwork.Downloader
	cmds   chan Command
	events chan Event
	quit   chan struct{}
}

// NewWorker creates a worker around the client. A nil covers downloader
// disables cover fetching. Call Start to launch it.
func NewWorker(client *Client, covers *artwork.Downloader) *Worker {
	return &Worker{
		client: client,
		covers: covers,
		cmds:   make(chan Command, 16),
		events: make(chan Event, 16),
		quit:   make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Close terminates the worker.
func (w *Worker) Close() {
	close(w.quit)
}

// Send queues a command.
func (w *Worker) Send(cmd Command) {
	select {
	case w.cmds <- cmd:
	case <-w.quit:
	}
}

// Events returns the worker's event stream.
func (w *Worker) Events() <-chan Event {
	return w.events
}

func (w *Worker) emit(ev Event) {
	select {
	case w.events <- ev:
	case <-w.quit:
	}
}

func (w *Worker) run() {
	for {
		select {
		case <-w.quit:
			return
		case cmd := <-w.cmds:
			w.handle(cmd)
		}
	}
}

func (w *Worker) handle(cmd Command) {
	switch c := cmd.(type) {
	case FetchLibraries:
		libs, err := w.client.GetLibraries()
		if err != nil {
			w.emit(Err{Message: err.Error()})
			return
		}
		w.emit(LibrariesLoaded{Libraries: libs})

	case FetchLibraryItems:
		items, err := w.client.GetLibraryItems(c.LibraryID)
		if err != nil {
			w.emit(Err{Message: err.Error()})
			return
		}
		w.emit(ItemsLoaded{Items: items})

	case FetchItemChapters:
		chapters, err := w.client.GetItemChapters(c.ItemID)
		if err != nil {
			w.emit(Err{Message: err.Error()})
			return
		}
		w.emit(ChaptersLoaded{Chapters: chapters})

	case DownloadForPlayback:
		w.downloadForPlayback(c)

	case FetchContinueListening:
		item, position, err := w.client.GetContinueListening(c.LibraryID)
		if err != nil {
			// Auto-resume is best effort, never surfaced as an error
			slog.Warn("Continue listening lookup failed", "error", err)
			return
		}
		if item == nil {
			return
		}
		w.emit(ContinueListeningLoaded{Item: *item, Position: position})

	case UpdateProgress:
		if err := w.client.UpdateProgress(c.ItemID, c.CurrentTime, c.Duration, c.IsFinished); err != nil {
			slog.Warn("Progress sync failed", "item", c.ItemID, "error", err)
		}
	}
}

// downloadForPlayback resolves the track covering the requested
// book-global position. Books without a track list fall back to the
// single-file play session.
func (w *Worker) downloadForPlayback(c DownloadForPlayback) {
	item, err := w.client.GetLibraryItem(c.ItemID)
	if err != nil {
		w.emit(Err{Message: err.Error()})
		return
	}

	var tracks []AudioTrack
	if item.Media != nil {
		tracks = item.Media.Tracks
	}

	if len(tracks) == 0 {
		path, err := w.client.DownloadAudio(c.ItemID)
		if err != nil {
			w.emit(Err{Message: err.Error()})
			return
		}
		w.emit(DownloadFinished{
			Path:          path,
			LocalPosition: c.Position,
			Track:         SingleFileTrack(),
		})
		w.fetchCover(c.ItemID)
		return
	}

	track := FindTrackForPosition(tracks, c.Position)
	if track == nil {
		track = &tracks[0]
	}

	localPosition := c.Position - track.StartOffset
	if localPosition < 0 {
		localPosition = 0
	}

	path, err := w.client.DownloadTrack(c.ItemID, *track)
	if err != nil {
		w.emit(Err{Message: err.Error()})
		return
	}

	w.emit(DownloadFinished{
		Path:          path,
		LocalPosition: localPosition,
		Track: TrackInfo{
			Index:       track.Index,
			StartOffset: track.StartOffset,
			Duration:    track.Duration,
		},
	})
	w.fetchCover(c.ItemID)
}

// fetchCover caches the item's cover image. Best effort; a missing cover
// never fails the playback flow.
func (w *Worker) fetchCover(itemID string) {
	if w.covers == nil {
		return
	}
	path, err := w.covers.Download(w.client.CoverURL(itemID))
	if err != nil {
		slog.Warn("Cover download failed", "item", itemID, "error", err)
		return
	}
	if path != "" {
		w.emit(CoverLoaded{ItemID: itemID, Path: path})
	}
}
