// Package model defines the typed structures of a Spotify data export:
// the playlist catalog, streaming history events, and the saved library.
package model

import (
	"bytes"
	"encoding/json"
)

// PlaylistTrack is the track object embedded in a playlist item.
// TrackURI is the canonical identifier; an item whose track object lacks
// a URI is treated as a non-track item because it has no identity.
type PlaylistTrack struct {
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	AlbumName  string `json:"albumName"`
	TrackURI   string `json:"trackUri"`
}

// PlaylistItem is one slot in a playlist. Exactly one of Track, Episode,
// Audiobook, or LocalTrack is expected to be present; the non-track kinds
// carry no identifier and are kept as raw JSON for presence checks only.
type PlaylistItem struct {
	Track      *PlaylistTrack  `json:"track,omitempty"`
	Episode    json.RawMessage `json:"episode,omitempty"`
	Audiobook  json.RawMessage `json:"audiobook,omitempty"`
	LocalTrack json.RawMessage `json:"localTrack,omitempty"`
	AddedDate  string          `json:"addedDate"`
}

// HasTrack reports whether the item holds a track with a canonical URI.
func (i PlaylistItem) HasTrack() bool {
	return i.Track != nil && i.Track.TrackURI != ""
}

// HasEpisode reports whether the item is a podcast episode.
func (i PlaylistItem) HasEpisode() bool { return rawPresent(i.Episode) }

// HasAudiobook reports whether the item is an audiobook.
func (i PlaylistItem) HasAudiobook() bool { return rawPresent(i.Audiobook) }

// HasLocalTrack reports whether the item is a locally sourced file.
func (i PlaylistItem) HasLocalTrack() bool { return rawPresent(i.LocalTrack) }

// rawPresent reports whether a raw JSON field was present and non-null.
func rawPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Playlist is one playlist from the export catalog. Name is the external
// lookup key; it is not guaranteed unique across a dataset.
type Playlist struct {
	Name             string         `json:"name"`
	LastModifiedDate string         `json:"lastModifiedDate"`
	Items            []PlaylistItem `json:"items"`
}

// PlaylistsFile is the root structure of the playlist catalog file.
type PlaylistsFile struct {
	Playlists []Playlist `json:"playlists"`
}

// StreamingEvent is a single play from the streaming history. It carries
// no track URI; matching against catalog tracks goes through normalized
// (name, artist) keys.
type StreamingEvent struct {
	EndTime    string `json:"endTime"`
	ArtistName string `json:"artistName"`
	TrackName  string `json:"trackName"`
	MSPlayed   int64  `json:"msPlayed"`
}

// LibraryTrack is one saved track from the user's library.
type LibraryTrack struct {
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Track  string `json:"track"`
	URI    string `json:"uri"`
}

// LibraryFile is the root structure of the saved library file.
type LibraryFile struct {
	Tracks []LibraryTrack `json:"tracks"`
}
