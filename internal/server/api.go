package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/askweb/models"
)

// APIHandler exposes the pipeline and the session history as JSON.
type APIHandler struct {
	Pipeline Asker
	Sessions *sessionCookies
}

func (h *APIHandler) Register(g *echo.Group, limit ...echo.MiddlewareFunc) {
	g.POST("/ask", h.ask, limit...)
	g.GET("/history", h.history)
}

func (h *APIHandler) ask(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.Sessions.ensure(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable").SetInternal(err)
	}
	ans, err := h.Pipeline.Run(c.Request().Context(), req.Query)
	if errors.Is(err, models.ErrEmptyQuery) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if err := sess.Append(c.Request().Context(), models.NewHistoryEntry(ans)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ans)
}

func (h *APIHandler) history(c echo.Context) error {
	sess, err := h.Sessions.lookup(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable").SetInternal(err)
	}
	if sess == nil {
		return c.JSON(http.StatusOK, []models.HistoryEntry{})
	}
	items, err := sess.History(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
