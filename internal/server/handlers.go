package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Alias1177/PriceWatch/internal/database"
	"github.com/Alias1177/PriceWatch/internal/model"
	"github.com/labstack/echo/v4"
)

type tickerRequest struct {
	Ticker string `query:"ticker" default:"AAPL" validate:"required,max=16,printascii,excludesall=/?&#"`
}

type priceRequest struct {
	Ticker  string `query:"ticker" default:"AAPL" validate:"required,max=16,printascii,excludesall=/?&#"`
	Narrate bool   `query:"narrate"`
	// Seeded from the configured defaults before binding, never from tags
	model.ThresholdConfig `default:"-"`
}

type decisionRequest struct {
	Ticker string `query:"ticker" default:"AAPL" validate:"required,max=16,printascii,excludesall=/?&#"`
	News   bool   `query:"news"`
}

type recordsRequest struct {
	Ticker string `query:"ticker" validate:"omitempty,max=16,printascii,excludesall=/?&#"`
	Limit  int    `query:"limit" default:"50" validate:"min=1,max=1000"`
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Orchestrator is running"})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"time":        time.Now().UTC().Format(time.RFC3339),
		"persistence": s.records != nil,
	})
}

// handlePrice runs one evaluation cycle with per-request thresholds
func (s *Server) handlePrice(c echo.Context) error {
	req := priceRequest{ThresholdConfig: s.engine.Defaults()}
	if errs := readAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": errs})
	}

	ev := s.engine.Run(c.Request().Context(), normalizeTicker(req.Ticker), req.ThresholdConfig, req.Narrate)
	return c.JSON(http.StatusOK, ev)
}

func (s *Server) handleHistory(c echo.Context) error {
	var req tickerRequest
	if errs := readAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": errs})
	}

	ticker := normalizeTicker(req.Ticker)
	trend := s.engine.Trend(c.Request().Context(), ticker)
	return c.JSON(http.StatusOK, map[string]any{
		"ticker":     ticker,
		"trend":      trend,
		"indicators": trend.Indicators(),
	})
}

func (s *Server) handleDecision(c echo.Context) error {
	var req decisionRequest
	if errs := readAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": errs})
	}

	d := s.engine.Decide(c.Request().Context(), normalizeTicker(req.Ticker), s.engine.Defaults(), req.News)
	return c.JSON(http.StatusOK, d)
}

func (s *Server) handleRecords(c echo.Context) error {
	if s.records == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": database.ErrDisabled.Error()})
	}

	var req recordsRequest
	if errs := readAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": errs})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	logs, err := s.records.RecentResults(ctx, normalizeTicker(req.Ticker), req.Limit)
	switch {
	case errors.Is(err, database.ErrDisabled):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to read records")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read records"})
	}

	if logs == nil {
		logs = []database.PriceLog{}
	}
	return c.JSON(http.StatusOK, map[string]any{"records": logs})
}
