package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-match/internal/domain"
)

// Evaluator resume el desempeño de los matches en una ventana.
type Evaluator interface {
	Evaluate(ctx context.Context, start, end time.Time) (domain.PerformanceSummary, error)
}

// EvaluationHandler expone el evaluador de desempeño.
type EvaluationHandler struct {
	logger    *zap.Logger
	evaluator Evaluator
}

// NewEvaluationHandler crea una instancia de EvaluationHandler.
func NewEvaluationHandler(logger *zap.Logger, evaluator Evaluator) *EvaluationHandler {
	return &EvaluationHandler{logger: logger, evaluator: evaluator}
}

// Evaluate maneja GET /evaluations?start=...&end=...
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	start, err := parseWindowBound(c.Query("start"), false)
	if err != nil {
		invalidRequest(c, h.logger, "evaluation", err)
		return
	}
	end, err := parseWindowBound(c.Query("end"), true)
	if err != nil {
		invalidRequest(c, h.logger, "evaluation", err)
		return
	}

	summary, err := h.evaluator.Evaluate(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, h.logger, "evaluate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// parseWindowBound acepta RFC3339 o YYYY-MM-DD. Una fecha sola como limite
// superior cubre el dia completo.
func parseWindowBound(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing window bound")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
