package analytics

import (
	"math"
	"sort"
	"strings"

	"spotify-export-stats/internal/model"
)

// DefaultTopN is the default result size for the ranking aggregators.
const DefaultTopN = 20

// TrackPlaylistCount ranks a track by how many distinct playlists it
// appears in.
type TrackPlaylistCount struct {
	TrackURI      string `json:"track_uri"`
	TrackName     string `json:"track_name"`
	ArtistName    string `json:"artist_name"`
	AlbumName     string `json:"album_name"`
	PlaylistCount int    `json:"playlist_count"`
}

// PlayedTrack ranks a track by play count from streaming history.
type PlayedTrack struct {
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	PlayCount  int    `json:"play_count"`
}

// ArtistStat ranks an artist by play count with cumulative listening time.
type ArtistStat struct {
	ArtistName   string  `json:"artist_name"`
	PlayCount    int     `json:"play_count"`
	TotalMinutes float64 `json:"total_minutes"`
}

// PlaylistStats summarizes the playlist catalog.
type PlaylistStats struct {
	TotalPlaylists      int     `json:"total_playlists"`
	TotalItems          int     `json:"total_items"`
	TotalTracks         int     `json:"total_tracks"`
	TotalEpisodes       int     `json:"total_episodes"`
	TotalAudiobooks     int     `json:"total_audiobooks"`
	TotalLocalTracks    int     `json:"total_local_tracks"`
	UniqueTracks        int     `json:"unique_tracks"`
	AvgItemsPerPlaylist float64 `json:"avg_items_per_playlist"`
}

// ListeningStats summarizes raw listening time over all events. No
// duration threshold applies here; this reports totals, not genuine
// plays.
type ListeningStats struct {
	TotalMS           int64   `json:"total_ms"`
	TotalSeconds      float64 `json:"total_seconds"`
	TotalMinutes      float64 `json:"total_minutes"`
	TotalHours        float64 `json:"total_hours"`
	TotalDays         float64 `json:"total_days"`
	TotalPlays        int     `json:"total_plays"`
	AvgMSPerPlay      float64 `json:"avg_ms_per_play"`
	AvgMinutesPerPlay float64 `json:"avg_minutes_per_play"`
}

// MostCommonTracksByPlaylist returns the topN tracks ranked by the
// number of distinct playlists containing them. A track appearing twice
// in one playlist counts once for that playlist. Ties keep the order in
// which tracks were first encountered during the scan, and display
// metadata comes from the first occurrence.
func MostCommonTracksByPlaylist(playlists []model.Playlist, topN int) []TrackPlaylistCount {
	counts := make(map[string]int)
	info := make(map[string]*model.PlaylistTrack)
	var order []string

	for _, playlist := range playlists {
		seen := make(map[string]bool)
		for _, item := range playlist.Items {
			if !item.HasTrack() {
				continue
			}
			uri := item.Track.TrackURI
			if _, known := info[uri]; !known {
				info[uri] = item.Track
				order = append(order, uri)
			}
			if !seen[uri] {
				seen[uri] = true
				counts[uri]++
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	results := make([]TrackPlaylistCount, 0, clampN(topN, len(order)))
	for _, uri := range order[:clampN(topN, len(order))] {
		track := info[uri]
		results = append(results, TrackPlaylistCount{
			TrackURI:      uri,
			TrackName:     displayOr(track.TrackName, "Unknown Track"),
			ArtistName:    displayOr(track.ArtistName, "Unknown Artist"),
			AlbumName:     displayOr(track.AlbumName, "Unknown Album"),
			PlaylistCount: counts[uri],
		})
	}
	return results
}

// MostPlayedTracks returns the topN tracks from streaming history by
// play count. Only events meeting minMSPlayed with a non-empty track and
// artist name qualify. Counting runs on normalized keys; the returned
// names are the title-cased normalized forms, for display only.
func MostPlayedTracks(events []model.StreamingEvent, topN int, minMSPlayed int64) []PlayedTrack {
	counts := make(map[string]int)
	var order []string

	for _, event := range events {
		if event.MSPlayed < minMSPlayed {
			continue
		}
		if event.TrackName == "" || event.ArtistName == "" {
			continue
		}
		key := NormalizeKey(event.TrackName, event.ArtistName)
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	results := make([]PlayedTrack, 0, clampN(topN, len(order)))
	for _, key := range order[:clampN(topN, len(order))] {
		track, artist := SplitKey(key)
		results = append(results, PlayedTrack{
			TrackName:  TitleCase(track),
			ArtistName: TitleCase(artist),
			PlayCount:  counts[key],
		})
	}
	return results
}

// TopArtists returns the topN artists from streaming history by play
// count, with total listening minutes per artist. Artists group by
// lowercased, trimmed name; punctuation is kept, so "AC/DC" and "ACDC"
// stay distinct.
func TopArtists(events []model.StreamingEvent, topN int, minMSPlayed int64) []ArtistStat {
	plays := make(map[string]int)
	timeMS := make(map[string]int64)
	var order []string

	for _, event := range events {
		if event.MSPlayed < minMSPlayed {
			continue
		}
		if event.ArtistName == "" {
			continue
		}
		artist := strings.ToLower(strings.TrimSpace(event.ArtistName))
		if plays[artist] == 0 {
			order = append(order, artist)
		}
		plays[artist]++
		timeMS[artist] += event.MSPlayed
	}

	sort.SliceStable(order, func(i, j int) bool {
		return plays[order[i]] > plays[order[j]]
	})

	results := make([]ArtistStat, 0, clampN(topN, len(order)))
	for _, artist := range order[:clampN(topN, len(order))] {
		results = append(results, ArtistStat{
			ArtistName:   TitleCase(artist),
			PlayCount:    plays[artist],
			TotalMinutes: round1(float64(timeMS[artist]) / 60000),
		})
	}
	return results
}

// PlaylistStatistics computes catalog-wide totals. It never fails; an
// empty catalog yields all zeroes with no division by zero.
func PlaylistStatistics(playlists []model.Playlist) PlaylistStats {
	stats := PlaylistStats{TotalPlaylists: len(playlists)}
	uniqueURIs := make(map[string]bool)

	for _, playlist := range playlists {
		stats.TotalItems += len(playlist.Items)
		for _, item := range playlist.Items {
			if item.Track != nil {
				stats.TotalTracks++
				if item.Track.TrackURI != "" {
					uniqueURIs[item.Track.TrackURI] = true
				}
			}
			if item.HasEpisode() {
				stats.TotalEpisodes++
			}
			if item.HasAudiobook() {
				stats.TotalAudiobooks++
			}
			if item.HasLocalTrack() {
				stats.TotalLocalTracks++
			}
		}
	}

	stats.UniqueTracks = len(uniqueURIs)
	if stats.TotalPlaylists > 0 {
		stats.AvgItemsPerPlaylist = round1(float64(stats.TotalItems) / float64(stats.TotalPlaylists))
	}
	return stats
}

// ListeningTimeStats computes raw listening totals over all events.
func ListeningTimeStats(events []model.StreamingEvent) ListeningStats {
	var totalMS int64
	for _, event := range events {
		totalMS += event.MSPlayed
	}

	stats := ListeningStats{
		TotalMS:      totalMS,
		TotalSeconds: round1(float64(totalMS) / 1000),
		TotalMinutes: round1(float64(totalMS) / 1000 / 60),
		TotalHours:   round1(float64(totalMS) / 1000 / 60 / 60),
		TotalDays:    round2(float64(totalMS) / 1000 / 60 / 60 / 24),
		TotalPlays:   len(events),
	}
	if len(events) > 0 {
		avgMS := float64(totalMS) / float64(len(events))
		stats.AvgMSPerPlay = round1(avgMS)
		stats.AvgMinutesPerPlay = round1(avgMS / 60000)
	}
	return stats
}

// clampN bounds a requested top-N against the available item count.
// Negative N is treated as zero.
func clampN(n, available int) int {
	if n < 0 {
		return 0
	}
	return min(n, available)
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
