package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/taskbot/internal/logview"
	"github.com/gin-gonic/gin"
)

type handler struct {
	logs LogService
}

type errorResponse struct {
	Error string `json:"error"`
}

// listLogs accepts both snake_case and the dashboard's camelCase date names.
func (h *handler) listLogs(c *gin.Context) {
	q := logview.Query{
		ProjectID: c.Query("project_id"),
		StartDate: firstQuery(c, "start_date", "startDate"),
		EndDate:   firstQuery(c, "end_date", "endDate"),
	}
	entries, err := h.logs.List(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, logview.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to list activity", "error", err, "request_id", c.GetString("request_id"), "project_id", q.ProjectID)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load activity"})
		return
	}
	if entries == nil {
		entries = []logview.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) listProjects(c *gin.Context) {
	projects, err := h.logs.Projects(c.Request.Context())
	if err != nil {
		slog.Error("failed to list projects", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusBadGateway, errorResponse{Error: "failed to load projects"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}
