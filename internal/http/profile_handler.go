package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-match/internal/domain"
	"care-match/internal/service"
)

// AnswerScorer convierte respuestas del cuestionario en perfiles.
type AnswerScorer interface {
	Questions() []service.QuestionnaireItem
	SubmitAnswers(ctx context.Context, ownerType, ownerID string, answers []int) (domain.PersonalityProfile, error)
}

// ProfileHandler expone el cuestionario de personalidad.
type ProfileHandler struct {
	logger        *zap.Logger
	questionnaire AnswerScorer
}

// NewProfileHandler crea una instancia de ProfileHandler.
func NewProfileHandler(logger *zap.Logger, questionnaire AnswerScorer) *ProfileHandler {
	return &ProfileHandler{logger: logger, questionnaire: questionnaire}
}

// Questions maneja GET /profiles/questions.
func (h *ProfileHandler) Questions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": h.questionnaire.Questions()})
}

// SubmitAnswers maneja PUT /profiles/:owner_type/:owner_id/answers.
func (h *ProfileHandler) SubmitAnswers(c *gin.Context) {
	var req struct {
		Answers []int `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, h.logger, "submit answers", err)
		return
	}

	profile, err := h.questionnaire.SubmitAnswers(c.Request.Context(), c.Param("owner_type"), c.Param("owner_id"), req.Answers)
	if err != nil {
		respondError(c, h.logger.With(zap.String("owner_id", c.Param("owner_id"))), "submit answers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
