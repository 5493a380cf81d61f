package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotify-export-stats/internal/tenant"
	"spotify-export-stats/internal/token"
	webfs "spotify-export-stats/web"
)

const testPlaylists = `{
	"playlists": [
		{
			"name": "Favorites",
			"lastModifiedDate": "2024-05-01",
			"items": [
				{"track": {"trackName": "Song X", "artistName": "Artist X", "albumName": "Album X", "trackUri": "U1"}, "addedDate": "2024-01-01"},
				{"track": {"trackName": "Song Y", "artistName": "Artist Y", "albumName": "Album Y", "trackUri": "U2"}, "addedDate": "2024-01-02"},
				{"episode": {"episodeName": "Ep 1"}, "addedDate": "2024-01-03"}
			]
		},
		{
			"name": "Gym",
			"lastModifiedDate": "2024-05-02",
			"items": [
				{"track": {"trackName": "Song X", "artistName": "Artist X", "albumName": "Album X", "trackUri": "U1"}, "addedDate": "2024-02-01"}
			]
		}
	]
}`

const testHistory = `[
	{"endTime": "2024-03-01 10:00", "artistName": "Artist X", "trackName": "Song X", "msPlayed": 180000},
	{"endTime": "2024-03-02 10:00", "artistName": "Artist X", "trackName": "Song X", "msPlayed": 200000},
	{"endTime": "2024-03-03 10:00", "artistName": "Artist Y", "trackName": "Song Y", "msPlayed": 150000},
	{"endTime": "2024-03-04 10:00", "artistName": "Artist Z", "trackName": "Song Z", "msPlayed": 10000}
]`

const testLibrary = `{"tracks": [{"artist": "Artist X", "album": "Album X", "track": "Song X", "uri": "U1"}]}`

type testApp struct {
	server  *Server
	tenants *tenant.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := log.New(io.Discard)
	tenants := tenant.NewStore(logger)
	t.Cleanup(tenants.DeleteAll)

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	require.NoError(t, err)
	static, err := fs.Sub(webfs.StaticFS, "static")
	require.NoError(t, err)

	server, err := NewServer(ServerConfig{
		Addr:           "127.0.0.1:0",
		Tenants:        tenants,
		Signer:         token.NewRandomSigner(time.Hour),
		Logger:         logger,
		SessionTTL:     time.Hour,
		MaxUploadBytes: 10 << 20,
		TemplatesFS:    templates,
		StaticFS:       static,
	})
	require.NoError(t, err)

	return &testApp{server: server, tenants: tenants}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.server.router.ServeHTTP(rec, req)
	return rec
}

func makeUploadZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func validUploadZip(t *testing.T) []byte {
	t.Helper()
	return makeUploadZip(t, map[string]string{
		"Spotify Account Data/Playlist1.json":                testPlaylists,
		"Spotify Account Data/StreamingHistory_music_0.json": testHistory,
		"Spotify Account Data/YourLibrary.json":              testLibrary,
	})
}

// upload posts a zip and returns the session cookie.
func (a *testApp) upload(t *testing.T, zipBytes []byte) *http.Cookie {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "my_spotify_data.zip")
	require.NoError(t, err)
	_, err = part.Write(zipBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := a.do(req)
	require.Equal(t, http.StatusOK, rec.Code, "upload failed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("upload response did not set a session cookie")
	return nil
}

func (a *testApp) getJSON(t *testing.T, path string, cookie *http.Cookie, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := a.do(req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestPagesRedirectToUploadWithoutData(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/playlists", "/tracks", "/analytics"} {
		rec := app.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, "path %s", path)
		assert.Equal(t, "/upload", rec.Header().Get("Location"), "path %s", path)
	}
}

func TestUploadPageAccessibleWithoutData(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload")
}

func TestAPIRequiresSession(t *testing.T) {
	app := newTestApp(t)

	rec := app.getJSON(t, "/api/analytics/overview", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRejectsForgedCookie(t *testing.T) {
	app := newTestApp(t)

	rec := app.getJSON(t, "/api/analytics/overview", &http.Cookie{Name: sessionCookieName, Value: "v4.local.forged"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadAndOverview(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var overview struct {
		Playlists struct {
			Total        int `json:"total"`
			UniqueTracks int `json:"unique_tracks"`
		} `json:"playlists"`
		Streaming struct {
			TotalPlays int `json:"total_plays"`
		} `json:"streaming"`
	}
	rec := app.getJSON(t, "/api/analytics/overview", cookie, &overview)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, overview.Playlists.Total)
	assert.Equal(t, 2, overview.Playlists.UniqueTracks)
	assert.Equal(t, 4, overview.Streaming.TotalPlays)
}

func TestTopTracksByPlaylist(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var tracks []struct {
		TrackURI      string `json:"track_uri"`
		PlaylistCount int    `json:"playlist_count"`
	}
	rec := app.getJSON(t, "/api/analytics/top-tracks-by-playlist?limit=10", cookie, &tracks)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, tracks, 2)
	assert.Equal(t, "U1", tracks[0].TrackURI)
	assert.Equal(t, 2, tracks[0].PlaylistCount)
	assert.Equal(t, "U2", tracks[1].TrackURI)
	assert.Equal(t, 1, tracks[1].PlaylistCount)
}

func TestTopTracksByPlays(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var tracks []struct {
		TrackName string `json:"track_name"`
		PlayCount int    `json:"play_count"`
	}
	rec := app.getJSON(t, "/api/analytics/top-tracks-by-plays", cookie, &tracks)
	require.Equal(t, http.StatusOK, rec.Code)

	// Song Z is under the 30s threshold.
	require.Len(t, tracks, 2)
	assert.Equal(t, "Song X", tracks[0].TrackName)
	assert.Equal(t, 2, tracks[0].PlayCount)
}

func TestMatchedTracks(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var result struct {
		TotalMatchedTracks int `json:"total_matched_tracks"`
		TotalPlays         int `json:"total_plays"`
		Tracks             []struct {
			TrackURI  string `json:"track_uri"`
			PlayCount int    `json:"play_count"`
		} `json:"tracks"`
	}
	rec := app.getJSON(t, "/api/analytics/matched-tracks", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, result.TotalMatchedTracks)
	assert.Equal(t, 3, result.TotalPlays)
	require.NotEmpty(t, result.Tracks)
	assert.Equal(t, "U1", result.Tracks[0].TrackURI)
	assert.Equal(t, 2, result.Tracks[0].PlayCount)
}

func TestGetPlaylist(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var playlist struct {
		Name       string `json:"name"`
		TotalItems int    `json:"total_items"`
		TrackCount int    `json:"track_count"`
	}
	rec := app.getJSON(t, "/api/playlists/Favorites", cookie, &playlist)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Favorites", playlist.Name)
	assert.Equal(t, 3, playlist.TotalItems)
	assert.Equal(t, 2, playlist.TrackCount)

	rec = app.getJSON(t, "/api/playlists/Nope", cookie, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTracksAndLibrary(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var tracksResp struct {
		Total  int `json:"total"`
		Tracks []struct {
			TrackURI string `json:"track_uri"`
		} `json:"tracks"`
	}
	rec := app.getJSON(t, "/api/tracks", cookie, &tracksResp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, tracksResp.Total)

	var libResp struct {
		Total int `json:"total"`
	}
	rec = app.getJSON(t, "/api/library", cookie, &libResp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, libResp.Total)
}

func TestSearchTracks(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var result struct {
		Total  int    `json:"total"`
		Query  string `json:"query"`
		Tracks []struct {
			TrackURI string `json:"track_uri"`
		} `json:"tracks"`
	}
	// Matches on artist name, case-insensitive.
	rec := app.getJSON(t, "/api/tracks/search?query=artist+y", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "artist y", result.Query)
	require.Len(t, result.Tracks, 1)
	assert.Equal(t, "U2", result.Tracks[0].TrackURI)

	// The album filter narrows a track-name match.
	rec = app.getJSON(t, "/api/tracks/search?query=song&album=Album+X", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Tracks, 1)
	assert.Equal(t, "U1", result.Tracks[0].TrackURI)
}

func TestListAlbums(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var result struct {
		Total  int `json:"total"`
		Albums []struct {
			AlbumName  string `json:"album_name"`
			TrackCount int    `json:"track_count"`
		} `json:"albums"`
	}
	rec := app.getJSON(t, "/api/tracks/albums", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)

	// Album X holds Song X in two playlists, so it counts 2 and sorts
	// first.
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Albums, 2)
	assert.Equal(t, "Album X", result.Albums[0].AlbumName)
	assert.Equal(t, 2, result.Albums[0].TrackCount)
	assert.Equal(t, "Album Y", result.Albums[1].AlbumName)
	assert.Equal(t, 1, result.Albums[1].TrackCount)

	rec = app.getJSON(t, "/api/tracks/albums?query=album+y", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, result.Total)
}

func TestFilterTracks(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var result struct {
		Total  int `json:"total"`
		Tracks []struct {
			TrackURI string `json:"track_uri"`
		} `json:"tracks"`
	}
	rec := app.getJSON(t, "/api/tracks/filter?artist=artist+x", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, result.Tracks, 1)
	assert.Equal(t, "U1", result.Tracks[0].TrackURI)

	// No filters returns every unique track.
	rec = app.getJSON(t, "/api/tracks/filter", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, result.Total)

	// Both filters must match.
	rec = app.getJSON(t, "/api/tracks/filter?artist=artist+x&album=Album+Y", cookie, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, result.Total)
}

func TestGetTrack(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var track struct {
		TrackURI         string `json:"track_uri"`
		TrackName        string `json:"track_name"`
		PlaylistCount    int    `json:"playlist_count"`
		FoundInPlaylists []struct {
			PlaylistName string `json:"playlist_name"`
			AddedDate    string `json:"added_date"`
		} `json:"found_in_playlists"`
	}
	rec := app.getJSON(t, "/api/tracks/U1", cookie, &track)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Song X", track.TrackName)
	assert.Equal(t, 2, track.PlaylistCount)
	require.Len(t, track.FoundInPlaylists, 2)
	assert.Equal(t, "Favorites", track.FoundInPlaylists[0].PlaylistName)
	assert.Equal(t, "Gym", track.FoundInPlaylists[1].PlaylistName)

	rec = app.getJSON(t, "/api/tracks/nope", cookie, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTracksByArtist(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	var tracks []struct {
		TrackURI string `json:"track_uri"`
	}
	rec := app.getJSON(t, "/api/tracks/by-artist/Artist%20X", cookie, &tracks)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tracks, 1)
	assert.Equal(t, "U1", tracks[0].TrackURI)

	// Substring matching: "artist" hits both, capped by limit.
	rec = app.getJSON(t, "/api/tracks/by-artist/artist?limit=1", cookie, &tracks)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, tracks, 1)

	rec = app.getJSON(t, "/api/tracks/by-artist/nobody", cookie, &tracks)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, tracks)
}

func TestUploadNonZip(t *testing.T) {
	app := newTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "bad.zip")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a zip file"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := app.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadMissingCatalog(t *testing.T) {
	app := newTestApp(t)

	zipBytes := makeUploadZip(t, map[string]string{"SomeOtherFile.json": `{"foo": "bar"}`})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "data.zip")
	require.NoError(t, err)
	_, err = part.Write(zipBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := app.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadReplacesPreviousSession(t *testing.T) {
	app := newTestApp(t)

	first := app.upload(t, validUploadZip(t))
	require.Equal(t, 1, app.tenants.Len())

	// Second upload carrying the first session's cookie replaces it.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "data2.zip")
	require.NoError(t, err)
	_, err = part.Write(validUploadZip(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(first)
	rec := app.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, app.tenants.Len(), "old tenant should be deleted on re-upload")
}

func TestReset(t *testing.T) {
	app := newTestApp(t)
	cookie := app.upload(t, validUploadZip(t))

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	req.AddCookie(cookie)
	rec := app.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, app.tenants.Len())

	// The old cookie no longer resolves.
	rec = app.getJSON(t, "/api/analytics/overview", cookie, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionInfo(t *testing.T) {
	app := newTestApp(t)

	var inactive struct {
		Active bool `json:"active"`
	}
	rec := app.getJSON(t, "/api/session", nil, &inactive)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, inactive.Active)

	cookie := app.upload(t, validUploadZip(t))

	// Trigger one load so something is cached.
	app.getJSON(t, "/api/analytics/playlist-stats", cookie, nil)

	var active struct {
		Active bool     `json:"active"`
		Cached []string `json:"cached"`
	}
	rec = app.getJSON(t, "/api/session", cookie, &active)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, active.Active)
	assert.Contains(t, active.Cached, "playlists")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	var health struct {
		Status string `json:"status"`
	}
	rec := app.getJSON(t, "/health", nil, &health)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", health.Status)
}
