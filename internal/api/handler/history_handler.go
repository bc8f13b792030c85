package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teaqnet/access-api/internal/core/ports"
)

// HistoryHandler serves a user's own prediction history.
type HistoryHandler struct {
	history ports.HistoryService
}

func NewHistoryHandler(history ports.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// Record stores a prediction made by the caller.
//
// @Summary      Record prediction
// @Tags         history
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      predictionRequest  true  "Prediction"
// @Success      200   {object}  entryEnvelope
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/history [post]
func (h *HistoryHandler) Record(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req predictionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	entry, err := h.history.RecordPrediction(c.Request().Context(), p, ports.PredictionInput{
		Prediction: req.Prediction,
		Confidence: req.Confidence,
		Model:      req.Model,
		Filename:   req.Filename,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entryEnvelope{Entry: toHistoryEntry(entry)})
}

// List returns the caller's predictions, newest first.
//
// @Summary      Own history
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  historyResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/history [get]
func (h *HistoryHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	entries, err := h.history.Own(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHistoryResponse(entries))
}

// Report is List rendered as CSV.
//
// @Summary      Own history report
// @Tags         history
// @Produce      text/csv
// @Security     BearerAuth
// @Success      200  {string}  string
// @Failure      401  {object}  map[string]string
// @Router       /api/history/report [get]
func (h *HistoryHandler) Report(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	entries, err := h.history.Own(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return writeCSV(c, "prediction_history", entries)
}
