package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/glefebvre/iptvcore/internal/config"
	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/fetcher"
	"github.com/glefebvre/iptvcore/internal/library"
	"github.com/glefebvre/iptvcore/internal/playlist"
)

func (s *Server) healthCheck(c *gin.Context) {
	primary := "ok"
	if s.health == nil {
		primary = "unavailable"
	} else if err := s.health(c.Request.Context()); err != nil {
		// The legacy tier keeps serving while the durable tier is down
		primary = "degraded"
		s.logger.WithContext(c.Request.Context()).WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("durable storage health check failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"primary": primary,
	})
}

func (s *Server) listPlaylists(c *gin.Context) {
	playlists, err := s.library.Service().LoadPlaylists(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, toSummary(p, s.library.IsPlaylistSplit(p.ID)))
	}
	c.JSON(http.StatusOK, gin.H{"playlists": out, "total": len(out)})
}

func (s *Server) createPlaylist(c *gin.Context) {
	var req CreatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.URL != "" {
		if err := library.ValidateURL(req.URL); err != nil {
			s.respondError(c, err)
			return
		}
	}

	p, err := s.library.SavePlaylist(c.Request.Context(), req.Name, req.Content, req.URL)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPlaylistResponse(*p, s.library.IsPlaylistSplit(p.ID)))
}

func (s *Server) importPlaylist(c *gin.Context) {
	var req ImportPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid request body"))
		return
	}

	p, err := s.library.LoadPlaylistFromURL(c.Request.Context(), req.Name, req.URL)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPlaylistResponse(*p, s.library.IsPlaylistSplit(p.ID)))
}

func (s *Server) getPlaylist(c *gin.Context) {
	id := c.Param("id")
	p, err := s.library.Service().GetPlaylist(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if p == nil {
		s.respondError(c, apperrors.NotFoundError("playlist", id))
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(*p, s.library.IsPlaylistSplit(id)))
}

func (s *Server) updatePlaylist(c *gin.Context) {
	id := c.Param("id")

	var req UpdatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid request body"))
		return
	}
	p, err := s.library.UpdatePlaylist(c.Request.Context(), id, playlist.Update{Name: req.Name, URL: req.URL})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if p == nil {
		s.respondError(c, apperrors.NotFoundError("playlist", id))
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(*p, s.library.IsPlaylistSplit(id)))
}

func (s *Server) deletePlaylist(c *gin.Context) {
	id := c.Param("id")
	deleted, err := s.library.DeletePlaylist(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !deleted {
		s.respondError(c, apperrors.NotFoundError("playlist", id))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) refreshPlaylist(c *gin.Context) {
	id := c.Param("id")
	p, err := s.library.RefreshPlaylist(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if p == nil {
		s.respondError(c, apperrors.NotFoundError("refreshable playlist", id))
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(*p, s.library.IsPlaylistSplit(id)))
}

func (s *Server) exportPlaylist(c *gin.Context) {
	id := c.Param("id")
	opts := library.ExportOptions{
		Group: config.PatternConfig{
			IncludePatterns: c.QueryArray("include_group"),
			ExcludePatterns: c.QueryArray("exclude_group"),
		},
		Name: config.PatternConfig{
			IncludePatterns: c.QueryArray("include_name"),
			ExcludePatterns: c.QueryArray("exclude_name"),
		},
	}
	content, ok, err := s.library.Export(c.Request.Context(), id, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		s.respondError(c, apperrors.NotFoundError("playlist", id))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+id+`.m3u"`)
	c.Data(http.StatusOK, "audio/x-mpegurl; charset=utf-8", []byte(content))
}

func (s *Server) listGroups(c *gin.Context) {
	id := c.Param("id")
	idx := s.library.PlaylistIndex(id)
	if idx == nil {
		s.respondError(c, apperrors.NotFoundError("split playlist", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"playlist_id":    idx.ID,
		"total_channels": idx.TotalChannels,
		"groups":         toGroups(idx),
	})
}

func (s *Server) groupChannels(c *gin.Context) {
	channels := s.library.GroupChannels(c.Param("id"), c.Param("groupId"))
	c.JSON(http.StatusOK, toChannels(channels))
}

func (s *Server) searchChannels(c *gin.Context) {
	channels, err := s.library.Service().SearchChannels(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChannels(channels))
}

func (s *Server) storageStats(c *gin.Context) {
	stats, err := s.library.StorageStats()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

const quotaExceededMessage = "Storage is full. Delete a playlist to free space and try again."

// respondError maps an error to its HTTP status; storage details stay in the log
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var statusErr *fetcher.HTTPStatusError
	switch {
	case apperrors.IsValidationError(err), apperrors.HasCode(err, apperrors.CodeNoChannels):
		status = http.StatusBadRequest
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		status = http.StatusNotFound
	case apperrors.IsNetworkError(err), errors.As(err, &statusErr):
		status = http.StatusBadGateway
	case apperrors.HasCode(err, apperrors.CodeQuotaExceeded):
		// No tier is left below the legacy one, so the caller must know
		s.logger.WithContext(c.Request.Context()).Warn("storage quota exceeded: " + err.Error())
		c.AbortWithStatusJSON(http.StatusInsufficientStorage, ErrorResponse{
			Error:   strings.ToLower(string(apperrors.CodeQuotaExceeded)),
			Message: quotaExceededMessage,
		})
		return
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithContext(c.Request.Context()).Error("request failed", err)
		message = "an unexpected error occurred"
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   strings.ToLower(string(apperrors.GetErrorCode(err))),
		Message: message,
	})
}
