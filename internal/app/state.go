// Package app holds the orchestrator: the single-goroutine state that maps
// the book-global timeline onto per-track playback sessions and mediates
// between the UI, the playback engine and the API worker.
package app

import (
	"fmt"
	"time"

	"shelfplayer/internal/api"
	"shelfplayer/internal/player"
)

// Focus identifies the pane receiving navigation keys.
type Focus int

const (
	FocusLibraries Focus = iota
	FocusChapters
	FocusControls
	FocusInfo
)

// PlayerHandle is the slice of the engine the orchestrator needs.
type PlayerHandle interface {
	Send(player.Command)
}

// APIHandle is the slice of the API worker the orchestrator needs.
type APIHandle interface {
	Send(api.Command)
}

// App is the orchestrator state. All methods run on the UI goroutine; the
// engine and worker are driven exclusively through fire-and-forget
// commands.
type App struct {
	SelectedLibrary int
	SelectedItem    int
	SelectedChapter int

	Libraries []api.Library
	Items     []api.LibraryItem
	Chapters  []api.Chapter

	CurrentChapter *api.Chapter
	CurrentItem    *api.LibraryItem
	CurrentItemID  string

	LoadingLibraries bool
	LoadingItems     bool
	LoadingChapters  bool

	Focus Focus

	PlayerState player.State

	// Position is book-global: track start offset plus the engine's
	// track-local position.
	Position      time.Duration
	TotalDuration time.Duration
	Speed         float64

	// TrackInfo places the loaded file on the book-global timeline;
	// nil until a download finishes.
	TrackInfo *api.TrackInfo
	Tracks    []api.AudioTrack

	// CoverPath is the cached cover image of the playing item.
	CoverPath string

	Notices *Notifications

	ShouldQuit bool

	// autoResumePending drives the startup continue-listening flow:
	// the resumed book starts paused so listening is a deliberate act.
	autoResumePending bool

	// downloadPending is set while a DownloadForPlayback is in flight so
	// the boundary check cannot queue duplicate handoffs.
	downloadPending bool

	seekStep time.Duration

	playerTx PlayerHandle
	apiTx    APIHandle
}

// New creates the orchestrator.
func New(playerTx PlayerHandle, apiTx APIHandle, seekStep time.Duration) *App {
	return &App{
		Focus:             FocusLibraries,
		PlayerState:       player.StateStopped,
		Speed:             1.0,
		Notices:           NewNotifications(),
		autoResumePending: true,
		seekStep:          seekStep,
		playerTx:          playerTx,
		apiTx:             apiTx,
	}
}

// LoadLibraries kicks off the initial library fetch.
func (a *App) LoadLibraries() {
	a.LoadingLibraries = true
	a.apiTx.Send(api.FetchLibraries{})
}

// LoadLibraryItems fetches the items of one library.
func (a *App) LoadLibraryItems(libraryID string) {
	a.LoadingItems = true
	a.apiTx.Send(api.FetchLibraryItems{LibraryID: libraryID})
}

// LoadChapters fetches the chapters of one item.
func (a *App) LoadChapters(itemID string) {
	a.LoadingChapters = true
	a.apiTx.Send(api.FetchItemChapters{ItemID: itemID})
}

// SyncProgress pushes the current book-global position to the server.
// A position within one second of the total counts as finished.
func (a *App) SyncProgress() {
	if a.CurrentItemID == "" {
		return
	}
	currentTime := a.Position.Seconds()
	duration := a.totalDurationSeconds()
	isFinished := duration > 0 && currentTime >= duration-1.0

	a.apiTx.Send(api.UpdateProgress{
		ItemID:      a.CurrentItemID,
		CurrentTime: currentTime,
		Duration:    duration,
		IsFinished:  isFinished,
	})
}

// totalDurationSeconds prefers the item's server-reported duration over
// the duration of the loaded track's stream.
func (a *App) totalDurationSeconds() float64 {
	if a.CurrentItem != nil && a.CurrentItem.Media != nil && a.CurrentItem.Media.Duration > 0 {
		return a.CurrentItem.Media.Duration
	}
	return a.TotalDuration.Seconds()
}

// OnLibrariesLoaded handles the library list: select the first library,
// load its items and, on startup, look up the continue-listening shelf.
func (a *App) OnLibrariesLoaded(libraries []api.Library) {
	a.LoadingLibraries = false
	a.Libraries = libraries
	a.SelectedLibrary = 0

	if len(libraries) == 0 {
		return
	}
	a.LoadLibraryItems(libraries[0].ID)
	if a.autoResumePending {
		a.apiTx.Send(api.FetchContinueListening{LibraryID: libraries[0].ID})
	}
}

// OnItemsLoaded handles a library item list.
func (a *App) OnItemsLoaded(items []api.LibraryItem) {
	a.LoadingItems = false
	a.Items = items
	a.SelectedItem = 0
	a.Chapters = nil
}

// OnChaptersLoaded handles a chapter list.
func (a *App) OnChaptersLoaded(chapters []api.Chapter) {
	a.LoadingChapters = false
	a.Chapters = chapters
	a.SelectedChapter = 0
}

// OnDownloadFinished starts playback of a downloaded track file. A
// duplicate of the track already playing is a stale in-flight download;
// restarting the session from it would jump playback backwards.
func (a *App) OnDownloadFinished(path string, localPosition float64, track api.TrackInfo) {
	a.downloadPending = false

	if a.PlayerState != player.StateStopped &&
		a.TrackInfo != nil && !a.TrackInfo.SingleFile() &&
		!track.SingleFile() && track.Index == a.TrackInfo.Index {
		return
	}

	info := track
	a.TrackInfo = &info

	a.playerTx.Send(player.Play{
		Path:     path,
		Position: time.Duration(localPosition * float64(time.Second)),
	})
}

// OnContinueListeningLoaded preloads the last listened book, rewound ten
// seconds, to be paused as soon as it starts.
func (a *App) OnContinueListeningLoaded(item api.LibraryItem, position float64) {
	if !a.autoResumePending {
		return
	}

	for i := range a.Items {
		if a.Items[i].ID == item.ID {
			a.SelectedItem = i
			break
		}
	}

	itemCopy := item
	a.CurrentItem = &itemCopy
	a.CurrentItemID = item.ID
	a.LoadChapters(item.ID)

	if item.Media != nil {
		a.Tracks = item.Media.Tracks
	}

	a.Focus = FocusChapters
	resumePosition := position - 10.0
	if resumePosition < 0 {
		resumePosition = 0
	}
	a.downloadPending = true
	a.apiTx.Send(api.DownloadForPlayback{ItemID: item.ID, Position: resumePosition})
}

// OnCoverLoaded records the cover image of the playing item.
func (a *App) OnCoverLoaded(itemID, path string) {
	if itemID == a.CurrentItemID {
		a.CoverPath = path
	}
}

// OnAPIError surfaces a worker error as a notification.
func (a *App) OnAPIError(message string) {
	a.LoadingLibraries = false
	a.LoadingItems = false
	a.LoadingChapters = false
	a.downloadPending = false
	a.Notices.Error(fmt.Sprintf("API: %s", message))
}

// OnPlayerStateChanged tracks engine state and syncs progress on the
// pause/stop transitions. The first Playing after startup completes the
// auto-resume flow by pausing immediately.
func (a *App) OnPlayerStateChanged(state player.State) {
	previous := a.PlayerState
	a.PlayerState = state

	if a.autoResumePending {
		if state == player.StatePlaying {
			a.autoResumePending = false
			a.playerTx.Send(player.Pause{})
		}
		return
	}

	switch {
	case previous == player.StatePlaying && state == player.StatePaused,
		previous == player.StatePlaying && state == player.StateStopped,
		previous == player.StatePaused && state == player.StateStopped:
		a.SyncProgress()
	}
}

// OnPositionUpdate converts the engine's track-local position to the
// book-global timeline, then refreshes the chapter cursor and checks the
// track boundary.
func (a *App) OnPositionUpdate(position time.Duration) {
	if a.TrackInfo != nil {
		a.Position = time.Duration(a.TrackInfo.StartOffset*float64(time.Second)) + position
	} else {
		a.Position = position
	}

	a.updateCurrentChapter()
	a.checkTrackBoundary()
}

// checkTrackBoundary prefetches the next track half a second before the
// loaded one runs out, targeting just past the boundary. At most one
// download is in flight; position updates arrive every 100ms, so without
// the guard a single handoff would queue several.
func (a *App) checkTrackBoundary() {
	if a.downloadPending || a.TrackInfo == nil || a.TrackInfo.SingleFile() {
		return
	}

	trackEnd := a.TrackInfo.StartOffset + a.TrackInfo.Duration
	globalPos := a.Position.Seconds()
	if globalPos < trackEnd-0.5 {
		return
	}

	hasNext := false
	for _, t := range a.Tracks {
		if t.Index == a.TrackInfo.Index+1 {
			hasNext = true
			break
		}
	}
	if !hasNext || a.CurrentItem == nil {
		return
	}

	a.downloadPending = true
	a.apiTx.Send(api.DownloadForPlayback{
		ItemID:   a.CurrentItem.ID,
		Position: trackEnd + 0.1,
	})
}

// updateCurrentChapter keeps the chapter cursor in step with the
// book-global position. The common case, still inside the cached chapter,
// skips the scan.
func (a *App) updateCurrentChapter() {
	if a.CurrentItemID == "" {
		return
	}

	pos := a.Position.Seconds()

	if a.CurrentChapter != nil && a.CurrentChapter.Contains(pos) {
		return
	}

	for i := range a.Chapters {
		if a.Chapters[i].Contains(pos) {
			chapter := a.Chapters[i]
			a.CurrentChapter = &chapter
			a.SelectedChapter = i
			return
		}
	}

	if n := len(a.Chapters); n > 0 && pos >= a.Chapters[n-1].End {
		a.CurrentChapter = nil
	}
}

// OnDurationChanged records the loaded stream's duration.
func (a *App) OnDurationChanged(duration time.Duration) {
	a.TotalDuration = duration
}

// OnTrackEnded is a no-op: the boundary prefetch has already queued the
// next track, whose DownloadFinished replaces the session.
func (a *App) OnTrackEnded() {}

// OnPlayerError surfaces an engine error as a notification.
func (a *App) OnPlayerError(message string) {
	a.Notices.Error(fmt.Sprintf("Player: %s", message))
}

// PlaySelectedChapter plays the selected chapter. Inside the playing
// item it is a seek on the live session; otherwise whatever track covers
// the chapter's start is downloaded and played.
func (a *App) PlaySelectedChapter() {
	if a.SelectedChapter >= len(a.Chapters) || a.SelectedItem >= len(a.Items) {
		return
	}
	chapter := a.Chapters[a.SelectedChapter]
	item := a.Items[a.SelectedItem]
	sameItem := item.ID == a.CurrentItemID

	a.CurrentChapter = &chapter
	itemCopy := item
	a.CurrentItem = &itemCopy
	a.CurrentItemID = item.ID
	if item.Media != nil {
		a.Tracks = item.Media.Tracks
	}

	if sameItem && a.PlayerState != player.StateStopped && a.TrackInfo != nil {
		a.seekToGlobal(chapter.Start)
		return
	}

	a.downloadPending = true
	a.apiTx.Send(api.DownloadForPlayback{ItemID: item.ID, Position: chapter.Start})
}

// TogglePlayback maps space to the state-appropriate command.
func (a *App) TogglePlayback() {
	switch a.PlayerState {
	case player.StatePlaying:
		a.playerTx.Send(player.Pause{})
	case player.StatePaused:
		a.playerTx.Send(player.Resume{})
	case player.StateStopped:
		a.PlaySelectedChapter()
	case player.StateLoading:
	}
}

// StopPlayback tears the session down.
func (a *App) StopPlayback() {
	a.playerTx.Send(player.Stop{})
}

// SeekForward steps the book-global position ahead, clamped to the book
// duration. TotalDuration is the loaded track's stream length, which is
// shorter than the book once playback passes track one, so the clamp has
// to use the item duration.
func (a *App) SeekForward() {
	target := a.Position + a.seekStep
	if total := a.BookDuration(); total > 0 && target > total {
		target = total
	}
	a.seekToGlobal(target.Seconds())
}

// SeekBackward steps the book-global position back, clamped to zero.
func (a *App) SeekBackward() {
	target := a.Position - a.seekStep
	if target < 0 {
		target = 0
	}
	a.seekToGlobal(target.Seconds())
}

// seekToGlobal routes a book-global seek: inside the loaded track it is a
// local engine seek, outside it the right track is downloaded and played.
func (a *App) seekToGlobal(globalPos float64) {
	if a.TrackInfo == nil || a.TrackInfo.SingleFile() {
		a.playerTx.Send(player.Seek{
			Position: time.Duration(globalPos * float64(time.Second)),
		})
		return
	}

	trackStart := a.TrackInfo.StartOffset
	trackEnd := trackStart + a.TrackInfo.Duration

	if globalPos >= trackStart && globalPos < trackEnd {
		local := globalPos - trackStart
		a.playerTx.Send(player.Seek{
			Position: time.Duration(local * float64(time.Second)),
		})
		return
	}

	if a.CurrentItem == nil {
		return
	}
	a.playerTx.Send(player.Stop{})
	a.downloadPending = true
	a.apiTx.Send(api.DownloadForPlayback{ItemID: a.CurrentItem.ID, Position: globalPos})
}

// BookDuration is the full book length on the global timeline, preferring
// the server-reported item duration over the loaded stream's.
func (a *App) BookDuration() time.Duration {
	return time.Duration(a.totalDurationSeconds() * float64(time.Second))
}

// AdjustSpeed bumps the playback rate by delta within the engine's range.
func (a *App) AdjustSpeed(delta float64) {
	speed := a.Speed + delta
	if speed < 0.5 {
		speed = 0.5
	}
	if speed > 3.0 {
		speed = 3.0
	}
	a.Speed = speed
	a.playerTx.Send(player.SetSpeed{Factor: speed})
}

// SelectItem loads chapters for the item under the cursor.
func (a *App) SelectItem() {
	if a.SelectedItem >= len(a.Items) {
		return
	}
	item := a.Items[a.SelectedItem]
	itemCopy := item
	a.CurrentItem = &itemCopy
	a.LoadChapters(item.ID)
}

// CycleFocus moves pane focus forward or backward.
func (a *App) CycleFocus(reverse bool) {
	order := []Focus{FocusLibraries, FocusChapters, FocusInfo, FocusControls}
	for i, f := range order {
		if f != a.Focus {
			continue
		}
		if reverse {
			a.Focus = order[(i+len(order)-1)%len(order)]
		} else {
			a.Focus = order[(i+1)%len(order)]
		}
		return
	}
}

// Quit syncs progress one last time and flags shutdown.
func (a *App) Quit() {
	a.SyncProgress()
	a.ShouldQuit = true
}

// NextLibrary moves the library cursor down and loads that library.
func (a *App) NextLibrary() {
	a.SelectedLibrary = increment(a.SelectedLibrary, len(a.Libraries))
	if a.SelectedLibrary < len(a.Libraries) {
		a.LoadLibraryItems(a.Libraries[a.SelectedLibrary].ID)
	}
}

// PreviousLibrary moves the library cursor up and loads that library.
func (a *App) PreviousLibrary() {
	a.SelectedLibrary = decrement(a.SelectedLibrary, len(a.Libraries))
	if a.SelectedLibrary < len(a.Libraries) {
		a.LoadLibraryItems(a.Libraries[a.SelectedLibrary].ID)
	}
}

// NextItem moves the item cursor down.
func (a *App) NextItem() {
	a.SelectedItem = increment(a.SelectedItem, len(a.Items))
}

// PreviousItem moves the item cursor up.
func (a *App) PreviousItem() {
	a.SelectedItem = decrement(a.SelectedItem, len(a.Items))
}

// NextChapter moves the chapter cursor down.
func (a *App) NextChapter() {
	a.SelectedChapter = increment(a.SelectedChapter, len(a.Chapters))
}

// PreviousChapter moves the chapter cursor up.
func (a *App) PreviousChapter() {
	a.SelectedChapter = decrement(a.SelectedChapter, len(a.Chapters))
}

func increment(index, count int) int {
	if count == 0 {
		return 0
	}
	if index+1 >= count {
		return count - 1
	}
	return index + 1
}

func decrement(index, count int) int {
	if count == 0 || index == 0 {
		return 0
	}
	return index - 1
}
