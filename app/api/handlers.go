package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/request-hub/app/adaptor"
	"github.com/lysyi3m/request-hub/app/database"
	"github.com/lysyi3m/request-hub/app/feed"
	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/playlist"
	"github.com/lysyi3m/request-hub/app/request"
	"github.com/lysyi3m/request-hub/app/tasks"
)

const playlistListLimit = 30

func NewHandler(requests database.RequestStore, playlists database.PlaylistStore, builder *playlist.Builder,
	history *harvest.History, registry *adaptor.Registry, configCache *adaptor.ConfigCache,
	generator *feed.Generator, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		requests:    requests,
		playlists:   playlists,
		builder:     builder,
		history:     history,
		registry:    registry,
		configCache: configCache,
		generator:   generator,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.requests.GetRequestCount(c.Request.Context()); err == nil {
		health["requests"] = count
	}

	health["loaded_adaptors"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	total, broadcast, err := h.requests.GetRequestStats(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_request_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	pool, err := h.requests.FetchContentPool(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "fetch_content_pool", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats := gin.H{
		"requests": gin.H{
			"total":     total,
			"broadcast": broadcast,
			"pending":   total - broadcast,
		},
		"pool":     len(pool),
		"adaptors": h.configCache.GetConfigCount(),
	}

	_, key := h.builder.CurrentTimestamp()
	if p, err := h.builder.Get(ctx, key); err == nil && p != nil {
		stats["playlist"] = gin.H{"id": p.ID, "entries": len(p.Entries)}
	}

	c.JSON(http.StatusOK, stats)
}

// GetPlaylist serves a stored playlist as RSS.
func (h *Handler) GetPlaylist(c *gin.Context) {
	key := c.Param("id")
	if _, err := playlist.ParseKey(key); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	p, err := h.builder.Get(c.Request.Context(), key)
	if err != nil {
		slog.Error("Database error", "operation", "get_playlist", "playlist", key, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if p == nil {
		c.Status(http.StatusNotFound)
		return
	}

	rss, err := h.generator.Run(p)
	if err != nil {
		slog.Error("RSS generation error", "playlist", key, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Playlist-Entries", strconv.Itoa(len(p.Entries)))
	c.Header("X-Playlist-Date", p.Date.Format("2006-01-02"))

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListRequests(c *gin.Context) {
	reqs, err := h.requests.FetchCDSRequests(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "fetch_cds_requests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": newRequestViews(reqs),
		"total":    len(reqs),
	})
}

func (h *Handler) APIGetRequest(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newRequestView(req))
}

func (h *Handler) APICreateRequest(c *gin.Context) {
	var in CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if in.AdaptorName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "adaptor_name is required"})
		return
	}

	h.createRequest(c, in, in.AdaptorName, in.AdaptorSource, false)
}

// AdaptorCreateRequest accepts a submission from an authenticated remote
// adaptor. Adaptor attributes come from the registry, not the payload.
func (h *Handler) AdaptorCreateRequest(c *gin.Context) {
	a := c.MustGet(adaptorContextKey).(*adaptor.RemoteAdaptor)

	var in CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	h.createRequest(c, in, a.Name, a.Source, a.Trusted)
}

func (h *Handler) createRequest(c *gin.Context, in CreateRequestInput, name, source string, trusted bool) {
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := in.Build(name, source, trusted)
	if err != nil {
		h.writeSuggestionError(c, err)
		return
	}

	if err := h.requests.SaveRequest(c.Request.Context(), req); err != nil {
		writeSaveError(c, req, err)
		return
	}

	slog.Info("Request created", "request", req.ID, "adaptor", name)
	c.JSON(http.StatusCreated, newRequestView(req))
}

func (h *Handler) APIUpdateContent(c *gin.Context) {
	var in ContentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	req.SetContent(in.ContentUpdate)
	h.saveAndRespond(c, req, http.StatusOK)
}

// APIRevertContent moves the current revision back one step, or to the
// revision given in the body.
func (h *Handler) APIRevertContent(c *gin.Context) {
	var in RevertInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	if in.Revision == nil {
		req.Revert()
	} else if err := req.SetCurrentRevision(*in.Revision); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.saveAndRespond(c, req, http.StatusOK)
}

func (h *Handler) APIAddSuggestion(c *gin.Context) {
	var in SuggestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	if _, err := req.SuggestURL(in.URL); err != nil {
		h.writeSuggestionError(c, err)
		return
	}

	h.saveAndRespond(c, req, http.StatusCreated)
}

func (h *Handler) APIVoteSuggestion(c *gin.Context) {
	var in SuggestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	normalized, err := request.NormalizeURL(in.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	s, err := h.requests.IncrementVotes(c.Request.Context(), id, normalized)
	if err != nil {
		slog.Error("Database error", "operation", "increment_votes", "request", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Suggestion not found"})
		return
	}

	c.JSON(http.StatusOK, newSuggestionView(s))
}

func (h *Handler) APIGetPool(c *gin.Context) {
	pool, err := h.requests.FetchContentPool(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "fetch_content_pool", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": newRequestViews(pool),
		"total":    len(pool),
	})
}

func (h *Handler) APIListPlaylists(c *gin.Context) {
	playlists, err := h.playlists.ListPlaylists(c.Request.Context(), playlistListLimit)
	if err != nil {
		slog.Error("Database error", "operation", "list_playlists", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]PlaylistView, 0, len(playlists))
	for i := range playlists {
		views = append(views, newPlaylistView(&playlists[i]))
	}
	c.JSON(http.StatusOK, gin.H{"playlists": views, "total": len(views)})
}

func (h *Handler) APIGetCurrentPlaylist(c *gin.Context) {
	p, err := h.builder.GetCurrent(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_current_playlist", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, newPlaylistView(p))
}

func (h *Handler) APIAddToPlaylist(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	added, err := h.builder.AddToPlaylist(c.Request.Context(), req)
	if err != nil {
		slog.Error("Failed to add request to playlist", "request", req.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add request to playlist"})
		return
	}

	_, key := h.builder.CurrentTimestamp()
	c.JSON(http.StatusOK, gin.H{
		"added":     added,
		"playlist":  key,
		"broadcast": req.Broadcast,
	})
}

func (h *Handler) APIBroadcast(c *gin.Context) {
	if err := h.scheduler.EnqueueBroadcast(); err != nil {
		slog.Error("Error enqueueing broadcast task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue broadcast task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Broadcast enqueued"})
}

func (h *Handler) APIGetHarvest(c *gin.Context) {
	name := c.Param("adaptor")

	ts, err := h.history.GetTimestamp(c.Request.Context(), adaptorName(name))
	if err != nil {
		slog.Error("Database error", "operation", "get_harvest", "adaptor", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"adaptor":   name,
		"timestamp": ts,
		"harvested": !ts.Equal(harvest.Epoch),
	})
}

func (h *Handler) APIListAdaptors(c *gin.Context) {
	adaptors, err := h.registry.List(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_adaptors", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]AdaptorView, 0, len(adaptors))
	for _, a := range adaptors {
		view := newAdaptorView(a)
		if config, err := h.configCache.GetConfig(a.Name); err == nil {
			view.Harvestable = config.Harvestable()
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"adaptors": views, "total": len(views)})
}

func (h *Handler) APIRenewKey(c *gin.Context) {
	name := c.Param("name")

	a, err := h.registry.Renew(c.Request.Context(), name)
	if errors.Is(err, adaptor.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Adaptor not found"})
		return
	}
	if err != nil {
		slog.Error("Failed to renew API key", "adaptor", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to renew API key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": a.Name, "api_key": a.APIKey})
}

// APIReloadAdaptor rereads an adaptor's config file and syncs it to the registry.
func (h *Handler) APIReloadAdaptor(c *gin.Context) {
	name := c.Param("name")

	config, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "adaptor", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncAdaptorTask(config, h.registry)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "adaptor", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"adaptor": gin.H{
			"name":        config.Name,
			"source":      config.Source,
			"harvestable": config.Harvestable(),
		},
		"task": gin.H{"id": syncTask.ID, "type": syncTask.Type},
	})
}

func (h *Handler) loadRequest(c *gin.Context) (*request.Request, bool) {
	id := c.Param("id")

	req, err := h.requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_request", "request", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if req == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return nil, false
	}
	return req, true
}

func (h *Handler) saveAndRespond(c *gin.Context, req *request.Request, status int) {
	if err := h.requests.SaveRequest(c.Request.Context(), req); err != nil {
		writeSaveError(c, req, err)
		return
	}
	c.JSON(status, newRequestView(req))
}

func writeSaveError(c *gin.Context, req *request.Request, err error) {
	if errors.Is(err, request.ErrConflict) {
		slog.Warn("Request modified concurrently", "request", req.ID, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": "Request was modified concurrently, reload and retry"})
		return
	}
	slog.Error("Database error", "operation", "save_request", "request", req.ID, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}

func (h *Handler) writeSuggestionError(c *gin.Context, err error) {
	var dup *request.DuplicateSuggestionError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "url": dup.URL})
	case errors.Is(err, request.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Unexpected suggestion error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
