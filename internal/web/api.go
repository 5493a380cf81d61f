package web

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"spotify-export-stats/internal/analytics"
	"spotify-export-stats/internal/model"
)

// defaultMatchedLimit is the default result size for the matched-tracks
// endpoint; matches are sparser than raw rankings so the default is
// larger.
const defaultMatchedLimit = 50

// AnalyticsOverview handles GET /api/analytics/overview.
func (h *Handlers) AnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}
	events, err := loader.StreamingHistory()
	if err != nil {
		h.writeError(w, err)
		return
	}

	playlistStats := analytics.PlaylistStatistics(catalog.Playlists)
	timeStats := analytics.ListeningTimeStats(events)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"playlists": map[string]any{
			"total":                  playlistStats.TotalPlaylists,
			"total_items":            playlistStats.TotalItems,
			"total_tracks":           playlistStats.TotalTracks,
			"unique_tracks":          playlistStats.UniqueTracks,
			"avg_items_per_playlist": playlistStats.AvgItemsPerPlaylist,
		},
		"streaming": map[string]any{
			"total_plays":          timeStats.TotalPlays,
			"total_hours":          timeStats.TotalHours,
			"total_days":           timeStats.TotalDays,
			"avg_minutes_per_play": timeStats.AvgMinutesPerPlay,
		},
	})
}

// TopTracksByPlaylist handles GET /api/analytics/top-tracks-by-playlist.
func (h *Handlers) TopTracksByPlaylist(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit := queryInt(r, "limit", analytics.DefaultTopN)
	h.writeJSON(w, http.StatusOK, analytics.MostCommonTracksByPlaylist(catalog.Playlists, limit))
}

// TopTracksByPlays handles GET /api/analytics/top-tracks-by-plays.
func (h *Handlers) TopTracksByPlays(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	events, err := loader.StreamingHistory()
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit := queryInt(r, "limit", analytics.DefaultTopN)
	minMS := queryInt64(r, "min_ms_played", analytics.DefaultMinMSPlayed)
	h.writeJSON(w, http.StatusOK, analytics.MostPlayedTracks(events, limit, minMS))
}

// TopArtists handles GET /api/analytics/top-artists.
func (h *Handlers) TopArtists(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	events, err := loader.StreamingHistory()
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit := queryInt(r, "limit", analytics.DefaultTopN)
	minMS := queryInt64(r, "min_ms_played", analytics.DefaultMinMSPlayed)
	h.writeJSON(w, http.StatusOK, analytics.TopArtists(events, limit, minMS))
}

// PlaylistStats handles GET /api/analytics/playlist-stats.
func (h *Handlers) PlaylistStats(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics.PlaylistStatistics(catalog.Playlists))
}

// ListeningTimeStats handles GET /api/analytics/listening-time-stats.
func (h *Handlers) ListeningTimeStats(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	events, err := loader.StreamingHistory()
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics.ListeningTimeStats(events))
}

// matchedTrack is one row of the matched-tracks response.
type matchedTrack struct {
	TrackURI   string `json:"track_uri"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name"`
	PlayCount  int    `json:"play_count"`
}

// MatchedTracks handles GET /api/analytics/matched-tracks: streaming
// play counts restricted to tracks that appear in playlists, enriched
// with catalog metadata and sorted by play count descending.
func (h *Handlers) MatchedTracks(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}
	events, err := loader.StreamingHistory()
	if err != nil {
		h.writeError(w, err)
		return
	}

	minMS := queryInt64(r, "min_ms_played", analytics.DefaultMinMSPlayed)
	matches := analytics.MatchStreamingToPlaylists(events, catalog.Playlists, minMS)

	info := make(map[string]*model.PlaylistTrack)
	for _, playlist := range catalog.Playlists {
		for _, item := range playlist.Items {
			if !item.HasTrack() {
				continue
			}
			if _, ok := info[item.Track.TrackURI]; !ok {
				info[item.Track.TrackURI] = item.Track
			}
		}
	}

	uris := make([]string, 0, len(matches))
	var totalPlays int
	for uri, count := range matches {
		uris = append(uris, uri)
		totalPlays += count
	}
	sort.Slice(uris, func(i, j int) bool {
		if matches[uris[i]] != matches[uris[j]] {
			return matches[uris[i]] > matches[uris[j]]
		}
		return uris[i] < uris[j]
	})

	limit := queryInt(r, "limit", defaultMatchedLimit)
	if limit < 0 {
		limit = 0
	}
	if limit > len(uris) {
		limit = len(uris)
	}

	tracks := make([]matchedTrack, 0, limit)
	for _, uri := range uris[:limit] {
		track := info[uri]
		tracks = append(tracks, matchedTrack{
			TrackURI:   uri,
			TrackName:  track.TrackName,
			ArtistName: track.ArtistName,
			AlbumName:  track.AlbumName,
			PlayCount:  matches[uri],
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total_matched_tracks": len(matches),
		"total_plays":          totalPlays,
		"tracks":               tracks,
	})
}

// playlistSummary is one row of the playlist listing.
type playlistSummary struct {
	Name             string `json:"name"`
	LastModifiedDate string `json:"last_modified_date"`
	TotalItems       int    `json:"total_items"`
	TrackCount       int    `json:"track_count"`
	EpisodeCount     int    `json:"episode_count"`
	LocalTrackCount  int    `json:"local_track_count"`
}

func summarizePlaylist(p model.Playlist) playlistSummary {
	s := playlistSummary{
		Name:             p.Name,
		LastModifiedDate: p.LastModifiedDate,
		TotalItems:       len(p.Items),
	}
	for _, item := range p.Items {
		if item.Track != nil {
			s.TrackCount++
		}
		if item.HasEpisode() {
			s.EpisodeCount++
		}
		if item.HasLocalTrack() {
			s.LocalTrackCount++
		}
	}
	return s
}

// ListPlaylists handles GET /api/playlists with limit/offset pagination.
func (h *Handlers) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	all := catalog.Playlists
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	page := paginate(all, offset, limit)
	summaries := make([]playlistSummary, 0, len(page))
	for _, p := range page {
		summaries = append(summaries, summarizePlaylist(p))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":     len(all),
		"offset":    offset,
		"limit":     limit,
		"count":     len(summaries),
		"playlists": summaries,
	})
}

// GetPlaylist handles GET /api/playlists/{name}. Names are not unique;
// the first match in catalog order wins.
func (h *Handlers) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	var found *model.Playlist
	for i := range catalog.Playlists {
		if catalog.Playlists[i].Name == name {
			found = &catalog.Playlists[i]
			break
		}
	}
	if found == nil {
		h.writeJSON(w, http.StatusNotFound, errorBody{Error: "playlist " + strconv.Quote(name) + " not found"})
		return
	}

	result := map[string]any{
		"name":               found.Name,
		"last_modified_date": found.LastModifiedDate,
		"total_items":        len(found.Items),
	}

	if queryBool(r, "include_tracks", true) {
		type playlistTrackRow struct {
			TrackURI   string `json:"track_uri"`
			TrackName  string `json:"track_name"`
			ArtistName string `json:"artist_name"`
			AlbumName  string `json:"album_name"`
			AddedDate  string `json:"added_date"`
		}
		tracks := make([]playlistTrackRow, 0, len(found.Items))
		for _, item := range found.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, playlistTrackRow{
				TrackURI:   item.Track.TrackURI,
				TrackName:  item.Track.TrackName,
				ArtistName: item.Track.ArtistName,
				AlbumName:  item.Track.AlbumName,
				AddedDate:  item.AddedDate,
			})
		}
		result["tracks"] = tracks
		result["track_count"] = len(tracks)
	}

	h.writeJSON(w, http.StatusOK, result)
}

// SearchPlaylists handles GET /api/playlists/search/by-name?query=.
// Matching is a case-insensitive substring check.
func (h *Handlers) SearchPlaylists(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	query := strings.ToLower(r.URL.Query().Get("query"))
	matching := make([]playlistSummary, 0)
	for _, p := range catalog.Playlists {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		matching = append(matching, summarizePlaylist(p))
	}

	h.writeJSON(w, http.StatusOK, matching)
}

// trackRow is one unique track in the tracks listing.
type trackRow struct {
	TrackURI   string `json:"track_uri"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name"`
}

// ListTracks handles GET /api/tracks: all unique tracks across
// playlists, in first-encountered order, with pagination.
func (h *Handlers) ListTracks(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	seen := make(map[string]bool)
	var all []trackRow
	for _, playlist := range catalog.Playlists {
		for _, item := range playlist.Items {
			if !item.HasTrack() || seen[item.Track.TrackURI] {
				continue
			}
			seen[item.Track.TrackURI] = true
			all = append(all, trackRow{
				TrackURI:   item.Track.TrackURI,
				TrackName:  item.Track.TrackName,
				ArtistName: item.Track.ArtistName,
				AlbumName:  item.Track.AlbumName,
			})
		}
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)
	page := paginate(all, offset, limit)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":  len(all),
		"offset": offset,
		"limit":  limit,
		"count":  len(page),
		"tracks": page,
	})
}

// SearchTracks handles GET /api/tracks/search: case-insensitive
// substring search over track and artist names, with an optional album
// filter. Results are unique by URI in first-encountered order.
func (h *Handlers) SearchTracks(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	query := r.URL.Query().Get("query")
	album := r.URL.Query().Get("album")
	queryLower := strings.ToLower(query)
	albumLower := strings.ToLower(album)

	seen := make(map[string]bool)
	var all []trackRow
	for _, playlist := range catalog.Playlists {
		for _, item := range playlist.Items {
			if !item.HasTrack() || seen[item.Track.TrackURI] {
				continue
			}
			track := item.Track
			if !strings.Contains(strings.ToLower(track.TrackName), queryLower) &&
				!strings.Contains(strings.ToLower(track.ArtistName), queryLower) {
				continue
			}
			if albumLower != "" && !strings.Contains(strings.ToLower(track.AlbumName), albumLower) {
				continue
			}
			seen[track.TrackURI] = true
			all = append(all, trackRow{
				TrackURI:   track.TrackURI,
				TrackName:  track.TrackName,
				ArtistName: track.ArtistName,
				AlbumName:  track.AlbumName,
			})
		}
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	page := paginate(all, offset, limit)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":        len(all),
		"offset":       offset,
		"limit":        limit,
		"count":        len(page),
		"query":        query,
		"album_filter": album,
		"tracks":       page,
	})
}

// albumStat is one row of the album listing.
type albumStat struct {
	AlbumName  string `json:"album_name"`
	ArtistName string `json:"artist_name"`
	TrackCount int    `json:"track_count"`
}

// ListAlbums handles GET /api/tracks/albums: unique (album, artist)
// pairs with their track occurrence counts, sorted by count descending.
// Duplicate playlist entries count every occurrence.
func (h *Handlers) ListAlbums(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	query := r.URL.Query().Get("query")
	queryLower := strings.ToLower(query)

	albums := make(map[string]*albumStat)
	var order []string
	for _, playlist := range catalog.Playlists {
		for _, item := range playlist.Items {
			if item.Track == nil {
				continue
			}
			track := item.Track
			if queryLower != "" && !strings.Contains(strings.ToLower(track.AlbumName), queryLower) {
				continue
			}
			key := track.AlbumName + "||" + track.ArtistName
			if _, ok := albums[key]; !ok {
				albums[key] = &albumStat{AlbumName: track.AlbumName, ArtistName: track.ArtistName}
				order = append(order, key)
			}
			albums[key].TrackCount++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return albums[order[i]].TrackCount > albums[order[j]].TrackCount
	})
	all := make([]albumStat, 0, len(order))
	for _, key := range order {
		all = append(all, *albums[key])
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)
	page := paginate(all, offset, limit)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":  len(all),
		"offset": offset,
		"limit":  limit,
		"count":  len(page),
		"query":  query,
		"albums": page,
	})
}

// FilterTracks handles GET /api/tracks/filter: unique tracks narrowed
// by optional album and artist substring filters.
func (h *Handlers) FilterTracks(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	album := r.URL.Query().Get("album")
	artist := r.URL.Query().Get("artist")
	albumLower := strings.ToLower(album)
	artistLower := strings.ToLower(artist)

	seen := make(map[string]bool)
	var all []trackRow
	for _, playlist := range catalog.Playlists {
		for _, item := range playlist.Items {
			if !item.HasTrack() || seen[item.Track.TrackURI] {
				continue
			}
			track := item.Track
			if albumLower != "" && !strings.Contains(strings.ToLower(track.AlbumName), albumLower) {
				continue
			}
			if artistLower != "" && !strings.Contains(strings.ToLower(track.ArtistName), artistLower) {
				continue
			}
			seen[track.TrackURI] = true
			all = append(all, trackRow{
				TrackURI:   track.TrackURI,
				TrackName:  track.TrackName,
				ArtistName: track.ArtistName,
				AlbumName:  track.AlbumName,
			})
		}
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	page := paginate(all, offset, limit)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":         len(all),
		"offset":        offset,
		"limit":         limit,
		"count":         len(page),
		"album_filter":  album,
		"artist_filter": artist,
		"tracks":        page,
	})
}

// GetTrack handles GET /api/tracks/{uri}: details for one track,
// including every playlist containing it. Metadata comes from the
// first occurrence; 404 when no playlist holds the URI.
func (h *Handlers) GetTrack(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	type playlistRef struct {
		PlaylistName string `json:"playlist_name"`
		AddedDate    string `json:"added_date"`
	}

	uri := chi.URLParam(r, "uri")
	var info *model.PlaylistTrack
	var foundIn []playlistRef
	for _, playlist := range catalog.Playlists {
		for _, item := range playlist.Items {
			if item.Track == nil || item.Track.TrackURI != uri {
				continue
			}
			if info == nil {
				info = item.Track
			}
			foundIn = append(foundIn, playlistRef{
				PlaylistName: playlist.Name,
				AddedDate:    item.AddedDate,
			})
		}
	}
	if info == nil {
		h.writeJSON(w, http.StatusNotFound, errorBody{Error: "track " + strconv.Quote(uri) + " not found"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"track_uri":          uri,
		"track_name":         info.TrackName,
		"artist_name":        info.ArtistName,
		"album_name":         info.AlbumName,
		"found_in_playlists": foundIn,
		"playlist_count":     len(foundIn),
	})
}

// TracksByArtist handles GET /api/tracks/by-artist/{artist}: unique
// tracks whose artist name contains the given name, case-insensitive,
// as a bare list capped at limit.
func (h *Handlers) TracksByArtist(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	catalog, err := loader.Playlists()
	if err != nil {
		h.writeError(w, err)
		return
	}

	artistLower := strings.ToLower(chi.URLParam(r, "artist"))
	limit := queryInt(r, "limit", 100)

	seen := make(map[string]bool)
	tracks := make([]trackRow, 0)
	for _, playlist := range catalog.Playlists {
		for _, item := range playlist.Items {
			if limit <= 0 || len(tracks) >= limit {
				break
			}
			if !item.HasTrack() || seen[item.Track.TrackURI] {
				continue
			}
			track := item.Track
			if !strings.Contains(strings.ToLower(track.ArtistName), artistLower) {
				continue
			}
			seen[track.TrackURI] = true
			tracks = append(tracks, trackRow{
				TrackURI:   track.TrackURI,
				TrackName:  track.TrackName,
				ArtistName: track.ArtistName,
				AlbumName:  track.AlbumName,
			})
		}
	}

	h.writeJSON(w, http.StatusOK, tracks)
}

// ListLibrary handles GET /api/library: the saved-library track list.
func (h *Handlers) ListLibrary(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeNoSession(w)
		return
	}

	library, err := loader.Library()
	if err != nil {
		h.writeError(w, err)
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)
	page := paginate(library.Tracks, offset, limit)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":  len(library.Tracks),
		"offset": offset,
		"limit":  limit,
		"count":  len(page),
		"tracks": page,
	})
}

// paginate slices items by offset and limit. Zero or negative limit
// means no limit; out-of-range offsets yield an empty page.
func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryInt64(r *http.Request, name string, fallback int64) int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, name string, fallback bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
