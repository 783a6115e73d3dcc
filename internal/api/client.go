package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	clientName    = "shelfplayer"
	clientVersion = "0.1.0"
)

// ErrNotFound reports a 404 from the server, notably for items that have
// no media progress yet.
var ErrNotFound = errors.New("not found")

// Client is an Audiobookshelf REST client. Downloads land in CacheDir
// with extensions derived from the track MIME type so the decoder factory
// can dispatch on them.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cacheDir   string
	deviceID   string
}

// NewClient creates a client for the given server. The cache directory is
// created if missing.
func NewClient(serverURL, apiKey, cacheDir string) (*Client, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimRight(serverURL, "/"),
		apiKey:     apiKey,
		cacheDir:   cacheDir,
		deviceID:   uuid.NewString(),
	}, nil
}

func (c *Client) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do runs a request and returns the response, mapping status codes to
// errors. Callers own the body on success.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("request %s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	return resp, nil
}

func (c *Client) getJSON(path string, v any) error {
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// GetLibraries lists the server's libraries.
func (c *Client) GetLibraries() ([]Library, error) {
	var wrapper librariesResponse
	if err := c.getJSON("/api/libraries", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Libraries, nil
}

// GetLibraryItems lists the items of one library.
func (c *Client) GetLibraryItems(libraryID string) ([]LibraryItem, error) {
	var wrapper libraryItemsResponse
	if err := c.getJSON("/api/libraries/"+libraryID+"/items", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Results, nil
}

// GetLibraryItem fetches one item expanded, including its audio tracks.
func (c *Client) GetLibraryItem(itemID string) (LibraryItem, error) {
	var item LibraryItem
	if err := c.getJSON("/api/items/"+itemID+"?expanded=1", &item); err != nil {
		return LibraryItem{}, err
	}
	return item, nil
}

// GetItemChapters fetches the chapter list of one item.
func (c *Client) GetItemChapters(itemID string) ([]Chapter, error) {
	var item LibraryItem
	if err := c.getJSON("/api/items/"+itemID, &item); err != nil {
		return nil, err
	}
	if item.Media == nil {
		return nil, nil
	}
	return item.Media.Chapters, nil
}

// GetPersonalized fetches the personalized shelves of one library.
func (c *Client) GetPersonalized(libraryID string) ([]PersonalizedShelf, error) {
	var shelves []PersonalizedShelf
	if err := c.getJSON("/api/libraries/"+libraryID+"/personalized", &shelves); err != nil {
		return nil, err
	}
	return shelves, nil
}

// GetMediaProgress fetches the listening progress for one item.
// Returns ErrNotFound when the item has never been played.
func (c *Client) GetMediaProgress(itemID string) (MediaProgress, error) {
	var progress MediaProgress
	if err := c.getJSON("/api/me/progress/"+itemID, &progress); err != nil {
		return MediaProgress{}, err
	}
	return progress, nil
}

// GetContinueListening resolves the first entry of the continue-listening
// shelf together with its saved position. Returns (nil, 0, nil) when the
// shelf is empty.
func (c *Client) GetContinueListening(libraryID string) (*LibraryItem, float64, error) {
	shelves, err := c.GetPersonalized(libraryID)
	if err != nil {
		return nil, 0, err
	}

	for _, shelf := range shelves {
		if shelf.ID != "continue-listening" {
			continue
		}
		for i := range shelf.Entities {
			if shelf.Entities[i].Media == nil {
				continue
			}
			item := shelf.Entities[i]
			position := 0.0
			if progress, err := c.GetMediaProgress(item.ID); err == nil {
				position = progress.CurrentTime
			}
			return &item, position, nil
		}
	}

	return nil, 0, nil
}

// UpdateProgress reports playback progress back to the server.
func (c *Client) UpdateProgress(itemID string, currentTime, duration float64, isFinished bool) error {
	update := progressUpdate{
		CurrentTime: currentTime,
		Duration:    duration,
		IsFinished:  isFinished,
	}
	if duration > 0 {
		update.Progress = currentTime / duration
	}

	body, err := json.Marshal(update)
	if err != nil {
		return err
	}

	req, err := c.newRequest(http.MethodPatch, "/api/me/progress/"+itemID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// DownloadTrack downloads one track of a multi-file book into the cache.
// Already-cached tracks are returned without a request.
func (c *Client) DownloadTrack(itemID string, track AudioTrack) (string, error) {
	path := c.cachePath(itemID, track.Index, track.MimeType)
	if _, err := os.Stat(path); err == nil {
		slog.Debug("Track already cached", "path", path)
		return path, nil
	}

	if err := c.downloadTo(track.ContentURL, path); err != nil {
		return "", err
	}
	return path, nil
}

// DownloadAudio downloads a single-file book by opening a play session and
// fetching its only track.
func (c *Client) DownloadAudio(itemID string) (string, error) {
	session, err := c.startPlaySession(itemID)
	if err != nil {
		return "", err
	}
	if len(session.AudioTracks) == 0 {
		return "", fmt.Errorf("no audio tracks in playback session for %s", itemID)
	}

	track := session.AudioTracks[0]
	path := c.cachePath(itemID, track.Index, track.MimeType)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := c.downloadTo(track.ContentURL, path); err != nil {
		return "", err
	}
	return path, nil
}

// CoverURL returns the authorized URL of an item's cover image.
func (c *Client) CoverURL(itemID string) string {
	return fmt.Sprintf("%s/api/items/%s/cover?token=%s", c.baseURL, itemID, c.apiKey)
}

func (c *Client) startPlaySession(itemID string) (playSessionResponse, error) {
	reqBody := playSessionRequest{
		DeviceInfo: deviceInfo{
			ClientName:    clientName,
			ClientVersion: clientVersion,
			DeviceID:      c.deviceID,
		},
		ForceDirectPlay: true,
		SupportedMimeTypes: []string{
			"audio/flac", "audio/mpeg", "audio/ogg", "audio/wav",
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return playSessionResponse{}, err
	}

	req, err := c.newRequest(http.MethodPost, "/api/items/"+itemID+"/play", bytes.NewReader(body))
	if err != nil {
		return playSessionResponse{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return playSessionResponse{}, err
	}
	defer resp.Body.Close()

	var session playSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return playSessionResponse{}, fmt.Errorf("decode play session: %w", err)
	}
	return session, nil
}

// downloadTo streams a server-relative content URL into a cache file.
// The file lands under a temporary name first so a failed download never
// leaves a truncated cache entry.
func (c *Client) downloadTo(contentURL, path string) error {
	req, err := c.newRequest(http.MethodGet, contentURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to download %s: %w", contentURL, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	slog.Info("Track downloaded", "path", path, "bytes", written)
	return nil
}

// cachePath builds the cache file name. The extension comes from the MIME
// type; without it the decoder would have to sniff every open.
func (c *Client) cachePath(itemID string, trackIndex int, mimeType string) string {
	return filepath.Join(c.cacheDir, fmt.Sprintf("%s_%d%s", itemID, trackIndex, extForMime(mimeType)))
}

func extForMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/ogg", "application/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	default:
		// Decoder factory sniffs the content for unknown extensions
		return ".audio"
	}
}
