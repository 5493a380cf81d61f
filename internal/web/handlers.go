package web

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"spotify-export-stats/internal/extract"
	"spotify-export-stats/internal/tenant"
	"spotify-export-stats/internal/token"
)

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	tenants        *tenant.Store
	signer         *token.Signer
	templates      *Templates
	logger         *log.Logger
	sessionTTL     time.Duration
	maxUploadBytes int64
}

// NewHandlers creates a Handlers instance.
func NewHandlers(tenants *tenant.Store, signer *token.Signer, templates *Templates, logger *log.Logger, sessionTTL time.Duration, maxUploadBytes int64) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		tenants:        tenants,
		signer:         signer,
		templates:      templates,
		logger:         logger,
		sessionTTL:     sessionTTL,
		maxUploadBytes: maxUploadBytes,
	}
}

// renderPage renders a page template, filling in the common PageData.
func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, page, title string) {
	data := PageData{
		Title:       title,
		CurrentPath: r.URL.Path,
		HasData:     h.hasSession(r),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering page", "page", page, "err", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

// requireData redirects to the upload page when no dataset session
// exists, returning false in that case.
func (h *Handlers) requireData(w http.ResponseWriter, r *http.Request) bool {
	if h.hasSession(r) {
		return true
	}
	http.Redirect(w, r, "/upload", http.StatusTemporaryRedirect)
	return false
}

// Home handles GET /.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	if !h.requireData(w, r) {
		return
	}
	h.renderPage(w, r, "index", "Dashboard")
}

// PlaylistsPage handles GET /playlists.
func (h *Handlers) PlaylistsPage(w http.ResponseWriter, r *http.Request) {
	if !h.requireData(w, r) {
		return
	}
	h.renderPage(w, r, "playlists", "Playlists")
}

// TracksPage handles GET /tracks.
func (h *Handlers) TracksPage(w http.ResponseWriter, r *http.Request) {
	if !h.requireData(w, r) {
		return
	}
	h.renderPage(w, r, "tracks", "Tracks")
}

// AnalyticsPage handles GET /analytics.
func (h *Handlers) AnalyticsPage(w http.ResponseWriter, r *http.Request) {
	if !h.requireData(w, r) {
		return
	}
	h.renderPage(w, r, "analytics", "Analytics")
}

// UploadPage handles GET /upload. Always accessible.
func (h *Handlers) UploadPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "upload", "Upload")
}

// Upload handles POST /api/upload: reads the multipart zip, extracts it,
// registers a tenant, and hands back a signed session cookie. A previous
// session is deleted first so each user holds at most one dataset.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "reading upload failed"})
		return
	}

	extractRoot, dataDir, err := extract.Unpack(data)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Replace any previous session for this client.
	if oldID, err := h.sessionTenantID(r); err == nil {
		h.tenants.Delete(oldID)
	}

	id, err := h.tenants.Create(dataDir, extractRoot)
	if err != nil {
		h.writeError(w, err)
		return
	}

	signed, err := h.signer.Sign(id)
	if err != nil {
		h.tenants.Delete(id)
		h.writeError(w, err)
		return
	}

	h.setSessionCookie(w, signed)
	h.logger.Info("upload accepted", "filename", header.Filename, "bytes", len(data))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"filename": header.Filename,
	})
}

// Reset handles POST /api/reset: deletes the session's tenant and its
// extracted files, then clears the cookie. Resetting without a session
// is not an error.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if id, err := h.sessionTenantID(r); err == nil {
		h.tenants.Delete(id)
	}
	h.clearSessionCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SessionInfo handles GET /api/session: reports whether a dataset is
// loaded and which logical files are currently cached in memory.
func (h *Handlers) SessionInfo(w http.ResponseWriter, r *http.Request) {
	loader, err := h.sessionLoader(r)
	if err != nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"active": true,
		"cached": loader.CachedKeys(),
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "spotify-export-stats",
	})
}
