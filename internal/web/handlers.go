package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/friction/internal/export"
	"github.com/mesh-intelligence/friction/pkg/types"
)

var errInvalidID = errors.New("invalid id")

// respond writes a success envelope.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// fail maps err onto a status code and writes an error envelope.
// Validation errors are 400, missing rows 404, anything else 500.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case types.IsValidation(err), errors.Is(err, errInvalidID):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	default:
		s.logger.Error("request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
			"error", err,
		)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}

func paramID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// observationFilter reads list filters from the query string.
func observationFilter(c *gin.Context) (types.ObservationFilter, error) {
	f := types.ObservationFilter{
		Disposition: strings.TrimSpace(c.Query("disposition")),
		Source:      strings.TrimSpace(c.Query("source")),
		Project:     strings.TrimSpace(c.Query("project")),
	}
	if f.Disposition != "" && !types.ValidDisposition(f.Disposition) {
		return f, types.ErrInvalidDisposition
	}
	return f, nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

// Dispositions

func (s *Server) handleDispositions(c *gin.Context) {
	respond(c, http.StatusOK, types.Dispositions)
}

// Observations

type createObservationRequest struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	Project string `json:"project"`
}

func (s *Server) handleListObservations(c *gin.Context) {
	filter, err := observationFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.observations.List(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (s *Server) handleCreateObservation(c *gin.Context) {
	var req createObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	obs, err := s.observations.Create(c.Request.Context(),
		strings.TrimSpace(req.Text),
		strings.TrimSpace(req.Source),
		strings.TrimSpace(req.Project),
	)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, obs)
}

func (s *Server) handleGetObservation(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	obs, err := s.observations.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, obs)
}

func (s *Server) handleUpdateObservation(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req types.ObservationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	update := types.ObservationUpdate{
		Text:        trimPtr(req.Text),
		Source:      trimPtr(req.Source),
		Disposition: trimPtr(req.Disposition),
		Project:     trimPtr(req.Project),
	}
	obs, err := s.observations.Update(c.Request.Context(), id, update)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, obs)
}

func (s *Server) handleDeleteObservation(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	deleted, err := s.observations.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !deleted {
		s.fail(c, types.ErrNotFound)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleObservationActions(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.actions.ListForObservation(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// Actions

func (s *Server) handleListActions(c *gin.Context) {
	filter := types.ActionFilter{Project: strings.TrimSpace(c.Query("project"))}
	if raw := c.Query("observation_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid observation_id")
			return
		}
		filter.ObservationID = id
	}
	list, err := s.actions.List(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (s *Server) handleCreateAction(c *gin.Context) {
	var req types.NewAction
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	req.Source = strings.TrimSpace(req.Source)
	req.Reference = strings.TrimSpace(req.Reference)
	req.Project = strings.TrimSpace(req.Project)

	action, err := s.actions.Create(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, action)
}

// Projects

type projectRequest struct {
	Name string `json:"name"`
}

type bulkProjectsRequest struct {
	Names []string `json:"names"`
}

type scanRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleListProjects(c *gin.Context) {
	list, err := s.projects.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	project, err := s.projects.Create(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, project)
}

func (s *Server) handleBulkProjects(c *gin.Context) {
	var req bulkProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	names := make([]string, len(req.Names))
	for i, n := range req.Names {
		names[i] = strings.TrimSpace(n)
	}
	created, err := s.projects.CreateBulk(c.Request.Context(), names)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, created)
}

func (s *Server) handleScanProjects(c *gin.Context) {
	if s.scanner == nil {
		s.fail(c, errors.New("project scanning is not configured"))
		return
	}
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		badRequest(c, "path is required")
		return
	}

	found, err := s.scanner.Scan(c.Request.Context(), path)
	if err != nil {
		s.fail(c, err)
		return
	}
	created, err := s.projects.CreateBulk(c.Request.Context(), found)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"found":   found,
		"created": created,
	})
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	deleted, err := s.projects.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !deleted {
		s.fail(c, types.ErrNotFound)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": id})
}

// Export

func (s *Server) handleExportMarkdown(c *gin.Context) {
	filter, err := observationFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	observations, err := s.observations.List(ctx, filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	actions, err := s.actions.List(ctx, types.ActionFilter{})
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Markdown(&buf, observations, actions); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", buf.Bytes())
}
