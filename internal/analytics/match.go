package analytics

import "spotify-export-stats/internal/model"

// DefaultMinMSPlayed is the minimum played duration for an event to
// count as a genuine listen. Spotify reports skips as short events;
// anything under 30 seconds is noise.
const DefaultMinMSPlayed = 30000

// MatchStreamingToPlaylists joins streaming history events to playlist
// tracks and returns play counts keyed by track URI. Only events that
// meet minMSPlayed and whose normalized (track, artist) key appears in
// the playlist catalog are counted; unmatched events are dropped
// silently. Events with an empty track or artist name are skipped
// regardless of duration.
func MatchStreamingToPlaylists(events []model.StreamingEvent, playlists []model.Playlist, minMSPlayed int64) map[string]int {
	index := BuildTrackIndex(playlists)
	return MatchEvents(events, index, minMSPlayed)
}

// MatchEvents counts qualifying events against a prebuilt track index.
// The result never contains a URI absent from the index.
func MatchEvents(events []model.StreamingEvent, index map[string]string, minMSPlayed int64) map[string]int {
	counts := make(map[string]int)

	for _, event := range events {
		if event.MSPlayed < minMSPlayed {
			continue
		}
		if event.TrackName == "" || event.ArtistName == "" {
			continue
		}
		if uri, ok := index[NormalizeKey(event.TrackName, event.ArtistName)]; ok {
			counts[uri]++
		}
	}

	return counts
}
