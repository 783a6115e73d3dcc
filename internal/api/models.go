// Package api talks to an Audiobookshelf server: typed REST client, the
// JSON models the app consumes, and a worker goroutine that turns commands
// into result events.
package api

// Library is one content library on the server.
type Library struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Icon      string `json:"icon,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

type librariesResponse struct {
	Libraries []Library `json:"libraries"`
}

// LibraryItem is one book. Media is nil in responses that omit it.
type LibraryItem struct {
	ID        string `json:"id"`
	LibraryID string `json:"libraryId"`
	MediaType string `json:"mediaType,omitempty"`
	Media     *Media `json:"media,omitempty"`
}

type libraryItemsResponse struct {
	Results []LibraryItem `json:"results"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
}

// Media carries the book's metadata, chapter list and audio tracks.
// Tracks is only populated on expanded item responses.
type Media struct {
	Metadata  MediaMetadata `json:"metadata"`
	CoverPath string        `json:"coverPath,omitempty"`
	Duration  float64       `json:"duration,omitempty"`
	Chapters  []Chapter     `json:"chapters,omitempty"`
	Tracks    []AudioTrack  `json:"tracks,omitempty"`
	NumTracks int           `json:"numTracks,omitempty"`
}

// MediaMetadata holds the display fields of a book.
type MediaMetadata struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle,omitempty"`
	AuthorName    string `json:"authorName,omitempty"`
	NarratorName  string `json:"narratorName,omitempty"`
	SeriesName    string `json:"seriesName,omitempty"`
	PublishedYear string `json:"publishedYear,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Chapter is one chapter marker on the book-global timeline.
type Chapter struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

// Contains reports whether the book-global position falls in this chapter.
func (c Chapter) Contains(position float64) bool {
	return position >= c.Start && position < c.End
}

// AudioTrack is one audio file of a multi-file book, placed on the
// book-global timeline by StartOffset.
type AudioTrack struct {
	Index       int     `json:"index"`
	StartOffset float64 `json:"startOffset"`
	Duration    float64 `json:"duration"`
	Title       string  `json:"title"`
	ContentURL  string  `json:"contentUrl"`
	MimeType    string  `json:"mimeType"`
}

// EndOffset is the book-global position where the track ends.
func (t AudioTrack) EndOffset() float64 {
	return t.StartOffset + t.Duration
}

// ContainsTimestamp reports whether the book-global position falls inside
// this track.
func (t AudioTrack) ContainsTimestamp(position float64) bool {
	return position >= t.StartOffset && position < t.EndOffset()
}

// FindTrackForPosition returns the track containing the book-global
// position, or nil.
func FindTrackForPosition(tracks []AudioTrack, position float64) *AudioTrack {
	for i := range tracks {
		if tracks[i].ContainsTimestamp(position) {
			return &tracks[i]
		}
	}
	return nil
}

// TrackInfo is the slice of track placement the playback side needs:
// which track is loaded and where it sits on the book-global timeline.
type TrackInfo struct {
	Index       int
	StartOffset float64
	Duration    float64
}

// SingleFileTrack is the TrackInfo for books served as one file; boundary
// handling is disabled for it.
func SingleFileTrack() TrackInfo {
	return TrackInfo{Index: 0, StartOffset: 0, Duration: 0}
}

// SingleFile reports whether this is the single-file sentinel.
func (t TrackInfo) SingleFile() bool {
	return t.Duration == 0
}

// PersonalizedShelf is one shelf of the personalized home view.
type PersonalizedShelf struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Type     string        `json:"type"`
	Entities []LibraryItem `json:"entities"`
}

// MediaProgress is the server-side listening progress for one item.
type MediaProgress struct {
	ID            string  `json:"id"`
	LibraryItemID string  `json:"libraryItemId"`
	Duration      float64 `json:"duration"`
	Progress      float64 `json:"progress"`
	CurrentTime   float64 `json:"currentTime"`
	IsFinished    bool    `json:"isFinished"`
	LastUpdate    int64   `json:"lastUpdate"`
}

// playSessionResponse is the part of a play-session response the client
// reads.
type playSessionResponse struct {
	ID          string       `json:"id"`
	AudioTracks []AudioTrack `json:"audioTracks"`
}

// progressUpdate is the body of a progress PATCH.
type progressUpdate struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Progress    float64 `json:"progress"`
	IsFinished  bool    `json:"isFinished"`
}

// deviceInfo identifies this client in play-session requests.
type deviceInfo struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	DeviceID      string `json:"deviceId"`
}

type playSessionRequest struct {
	DeviceInfo         deviceInfo `json:"deviceInfo"`
	ForceDirectPlay    bool       `json:"forceDirectPlay"`
	SupportedMimeTypes []string   `json:"supportedMimeTypes"`
}
