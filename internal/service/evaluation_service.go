package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

const evaluationNoData = "no data"

// EvaluationService resume los matches creados en una ventana. Solo lectura.
type EvaluationService struct {
	matches repository.MatchRepository
	logger  *zap.Logger
}

func NewEvaluationService(matches repository.MatchRepository, logger *zap.Logger) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{matches: matches, logger: logger}
}

// Evaluate agrega los matches con created_at en [start, end], ambos inclusive.
func (s *EvaluationService) Evaluate(ctx context.Context, start, end time.Time) (domain.PerformanceSummary, error) {
	if start.IsZero() || end.IsZero() {
		return domain.PerformanceSummary{}, invalidInput("start and end are required")
	}
	if start.After(end) {
		return domain.PerformanceSummary{}, domain.WrapError(domain.CodeInvalidInput, "start must not be after end",
			fmt.Errorf("start %s end %s", start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}

	records, err := s.matches.Query(ctx, repository.MatchFilter{CreatedFrom: &start, CreatedTo: &end})
	if err != nil {
		return domain.PerformanceSummary{}, storageError("query matches", err)
	}

	summary := Summarize(records)
	summary.Start, summary.End = start, end

	s.logger.Info("performance evaluated",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("count", summary.Count),
		zap.Float64("mean_score", summary.MeanScore),
	)
	return summary, nil
}

// Summarize calcula conteo, media, histogramas y rating de un conjunto de matches.
func Summarize(records []domain.MatchRecord) domain.PerformanceSummary {
	summary := domain.PerformanceSummary{
		GradeHistogram:  make(map[domain.Grade]int),
		StatusHistogram: make(map[domain.MatchStatus]int),
	}
	if len(records) == 0 {
		summary.Message = evaluationNoData
		return summary
	}

	var total float64
	for _, rec := range records {
		total += rec.Score
		summary.GradeHistogram[rec.Grade]++
		summary.StatusHistogram[rec.Status]++
	}
	summary.Count = len(records)
	summary.MeanScore = roundScore(total / float64(len(records)))
	summary.Rating = RatingForMean(summary.MeanScore)
	return summary
}

// RatingForMean traduce la media de puntajes a un rating cualitativo.
func RatingForMean(mean float64) string {
	switch {
	case mean >= 90:
		return domain.RatingExcellent
	case mean >= 75:
		return domain.RatingGood
	case mean >= 65:
		return domain.RatingFair
	default:
		return domain.RatingNeedsImprovement
	}
}
