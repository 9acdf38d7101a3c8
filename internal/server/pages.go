package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/askweb/models"
)

const emptyQueryWarning = "Please enter a valid query."

// PagesHandler serves the browser form.
type PagesHandler struct {
	Pipeline Asker
	Sessions *sessionCookies
	Logger   *log.Logger
}

type pageData struct {
	Query   string
	Answer  *models.Answer
	Warning string
	Error   string
	History []models.HistoryEntry
}

func (h *PagesHandler) Register(g *echo.Group, limit ...echo.MiddlewareFunc) {
	g.GET("/", h.index)
	g.POST("/search", h.search, limit...)
}

func (h *PagesHandler) index(c echo.Context) error {
	data := pageData{}
	if err := h.loadHistory(c, &data); err != nil {
		return err
	}
	return c.Render(http.StatusOK, "index.html", data)
}

func (h *PagesHandler) search(c echo.Context) error {
	data := pageData{Query: strings.TrimSpace(c.FormValue("query"))}
	if data.Query == "" {
		data.Warning = emptyQueryWarning
		if err := h.loadHistory(c, &data); err != nil {
			return err
		}
		return c.Render(http.StatusOK, "index.html", data)
	}

	sess, err := h.Sessions.ensure(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable").SetInternal(err)
	}
	status := http.StatusOK
	ans, err := h.Pipeline.Run(c.Request().Context(), data.Query)
	switch {
	case errors.Is(err, models.ErrEmptyQuery):
		data.Warning = emptyQueryWarning
	case err != nil:
		h.Logger.Printf("query %q failed: %v", data.Query, err)
		data.Error = "Could not answer this query: " + err.Error()
		status = http.StatusBadGateway
	default:
		data.Answer = &ans
		if err := sess.Append(c.Request().Context(), models.NewHistoryEntry(ans)); err != nil {
			h.Logger.Printf("history append for %s: %v", sess.ID(), err)
		}
	}

	history, err := sess.History(c.Request().Context())
	if err != nil {
		h.Logger.Printf("history read for %s: %v", sess.ID(), err)
	}
	data.History = history
	return c.Render(status, "index.html", data)
}

func (h *PagesHandler) loadHistory(c echo.Context, data *pageData) error {
	sess, err := h.Sessions.ensure(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable").SetInternal(err)
	}
	data.History, err = sess.History(c.Request().Context())
	if err != nil {
		h.Logger.Printf("history read for %s: %v", sess.ID(), err)
	}
	return nil
}

func timefmt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2 15:04")
}
