package analytics

import "spotify-export-stats/internal/model"

// BuildTrackIndex maps normalized (track, artist) keys to track URIs by
// scanning every playlist item once. Streaming history events carry no
// URI, so this index is what lets them be joined back to catalog tracks.
//
// Items without a track, or whose track lacks a URI, name, or artist,
// are skipped. When two distinct tracks normalize to the same key, the
// one seen last in the scan wins; near-duplicate titles therefore
// resolve to a single URI rather than an error.
func BuildTrackIndex(playlists []model.Playlist) map[string]string {
	index := make(map[string]string)

	for _, playlist := range playlists {
		for _, item := range playlist.Items {
			if !item.HasTrack() {
				continue
			}
			track := item.Track
			if track.TrackName == "" || track.ArtistName == "" {
				continue
			}
			index[NormalizeKey(track.TrackName, track.ArtistName)] = track.TrackURI
		}
	}

	return index
}
