package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-match/internal/domain"
)

// Recommender produce el ranking de cuidadores para un paciente.
type Recommender interface {
	Recommend(ctx context.Context, patientID string, limit int) ([]domain.CompatibilityResult, error)
}

// MatchManager expone el ciclo de vida de los matches.
type MatchManager interface {
	Create(ctx context.Context, patientID, caregiverID string) (domain.MatchRecord, error)
	Cancel(ctx context.Context, matchID, reason string) (domain.MatchRecord, error)
	Complete(ctx context.Context, matchID, reason string) (domain.MatchRecord, error)
	History(ctx context.Context, patientID string) ([]domain.MatchView, error)
	Entries(ctx context.Context, matchID string) ([]domain.MatchHistoryEntry, error)
}

// MatchHandler mantiene dependencias para recomendaciones y matches.
type MatchHandler struct {
	logger  *zap.Logger
	ranking Recommender
	matches MatchManager
}

// NewMatchHandler crea una instancia de MatchHandler.
func NewMatchHandler(logger *zap.Logger, ranking Recommender, matches MatchManager) *MatchHandler {
	return &MatchHandler{
		logger:  logger,
		ranking: ranking,
		matches: matches,
	}
}

// Recommendations maneja GET /patients/:id/recommendations.
func (h *MatchHandler) Recommendations(c *gin.Context) {
	patientID := c.Param("id")
	// Sin limit el servicio aplica su valor por defecto (0); un limit explicito debe ser >= 1.
	limit := 0
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			invalidRequest(c, h.logger, "recommendations", err)
			return
		}
		if n < 1 {
			respondError(c, h.logger.With(zap.String("patient_id", patientID)), "recommend",
				domain.NewError(domain.CodeInvalidInput, "limit out of range"))
			return
		}
		limit = n
	}

	results, err := h.ranking.Recommend(c.Request.Context(), patientID, limit)
	if err != nil {
		respondError(c, h.logger.With(zap.String("patient_id", patientID)), "recommend", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient_id": patientID, "recommendations": results})
}

// PatientMatches maneja GET /patients/:id/matches.
func (h *MatchHandler) PatientMatches(c *gin.Context) {
	patientID := c.Param("id")
	views, err := h.matches.History(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, h.logger.With(zap.String("patient_id", patientID)), "match history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient_id": patientID, "matches": views})
}

// CreateMatch maneja POST /matches.
func (h *MatchHandler) CreateMatch(c *gin.Context) {
	var req struct {
		PatientID   string `json:"patient_id" binding:"required"`
		CaregiverID string `json:"caregiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, "create match", err)
		return
	}

	rec, err := h.matches.Create(c.Request.Context(), req.PatientID, req.CaregiverID)
	if err != nil {
		respondError(c, h.logger.With(
			zap.String("patient_id", req.PatientID),
			zap.String("caregiver_id", req.CaregiverID),
		), "create match", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"match": rec})
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

// CancelMatch maneja POST /matches/:id/cancel.
func (h *MatchHandler) CancelMatch(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, "cancel match", err)
		return
	}
	matchID := c.Param("id")
	rec, err := h.matches.Cancel(c.Request.Context(), matchID, req.Reason)
	if err != nil {
		respondError(c, h.logger.With(zap.String("match_id", matchID)), "cancel match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": rec})
}

// CompleteMatch maneja POST /matches/:id/complete. El body es opcional.
func (h *MatchHandler) CompleteMatch(c *gin.Context) {
	var req transitionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c, h.logger, "complete match", err)
			return
		}
	}
	matchID := c.Param("id")
	rec, err := h.matches.Complete(c.Request.Context(), matchID, req.Reason)
	if err != nil {
		respondError(c, h.logger.With(zap.String("match_id", matchID)), "complete match", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": rec})
}

// MatchEntries maneja GET /matches/:id/history.
func (h *MatchHandler) MatchEntries(c *gin.Context) {
	matchID := c.Param("id")
	entries, err := h.matches.Entries(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, h.logger.With(zap.String("match_id", matchID)), "match entries", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match_id": matchID, "entries": entries})
}
