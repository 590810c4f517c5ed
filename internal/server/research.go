package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/deepresearch/internal/research"
)

// ResearchHandler exposes the research process lifecycle over HTTP.
type ResearchHandler struct {
	Registry *research.Registry
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/start", h.start)
	g.GET("/status/:id", h.status)
	g.POST("/confirm/:id", h.confirm)
	g.POST("/cancel/:id", h.cancel)
}

type startRequest struct {
	Topic        string `json:"topic"`
	Requirements string `json:"requirements"`
}

func (h *ResearchHandler) start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Topic) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic is required")
	}
	snap := h.Registry.Create(req.Topic, req.Requirements)
	return c.JSON(http.StatusAccepted, snap)
}

func (h *ResearchHandler) status(c echo.Context) error {
	snap, err := h.Registry.Get(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *ResearchHandler) confirm(c echo.Context) error {
	snap, err := h.Registry.Confirm(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *ResearchHandler) cancel(c echo.Context) error {
	snap, err := h.Registry.Cancel(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

// httpError maps registry errors onto HTTP statuses.
func httpError(err error) error {
	var nf *research.NotFoundError
	if errors.As(err, &nf) {
		return echo.NewHTTPError(http.StatusNotFound, nf.Error())
	}
	var se *research.StateError
	if errors.As(err, &se) {
		return echo.NewHTTPError(http.StatusBadRequest, se.Error())
	}
	return err
}
