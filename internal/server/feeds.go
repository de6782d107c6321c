package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/news"
)

const offlineHeader = "X-Offline-Mode"

// Feeds is the news and events listing surface.
type Feeds interface {
	Headlines(ctx context.Context) ([]news.Article, error)
	Digest(ctx context.Context, q news.DigestQuery) (news.Digest, error)
	Events(ctx context.Context, category string) ([]news.Event, error)
}

// FeedHandler serves the news and events listings as JSON.
type FeedHandler struct {
	feeds  Feeds
	keyOK  bool
	logger *zap.Logger
}

func (h *FeedHandler) Register(g *echo.Group) {
	g.GET("/news", h.headlines)
	g.GET("/news/full", h.digest)
	g.GET("/events", h.events)
}

func (h *FeedHandler) ready() error {
	if !h.keyOK || h.feeds == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "YOU_API_KEY is not configured")
	}
	return nil
}

func (h *FeedHandler) headlines(c echo.Context) error {
	if err := h.ready(); err != nil {
		return err
	}
	articles, err := h.feeds.Headlines(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"articles": articles})
}

func (h *FeedHandler) digest(c echo.Context) error {
	if err := h.ready(); err != nil {
		return err
	}
	q := news.DigestQuery{Category: c.QueryParam("category")}
	if raw := c.QueryParam("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be an integer")
		}
		q.Days = days
	}
	q.Summary, _ = strconv.ParseBool(c.QueryParam("summary"))

	d, err := h.feeds.Digest(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *FeedHandler) events(c echo.Context) error {
	if strings.EqualFold(c.Request().Header.Get(offlineHeader), "true") {
		return c.JSON(http.StatusOK, map[string]interface{}{"events": []news.Event{}, "offline": true})
	}
	if err := h.ready(); err != nil {
		return err
	}
	events, err := h.feeds.Events(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		h.logger.Warn("events listing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"error": err.Error(), "events": []news.Event{}})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}
