package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

const (
	reasonMatchCreated   = "match created"
	reasonMatchCompleted = "match completed"
)

// cacheInvalidator descarta recomendaciones de un paciente tras un cambio de estado.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, patientID string)
}

// MatchService gestiona el ciclo de vida de los matches.
type MatchService struct {
	profiles repository.ProfileRepository
	matches  repository.MatchRepository
	scorer   Scorer
	recs     cacheInvalidator
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewMatchService(profiles repository.ProfileRepository, matches repository.MatchRepository, scorer Scorer, recs cacheInvalidator, logger *zap.Logger) *MatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{
		profiles: profiles,
		matches:  matches,
		scorer:   scorer,
		recs:     recs,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Preview puntua el par sin persistir nada.
func (s *MatchService) Preview(ctx context.Context, patientID, caregiverID string) (domain.CompatibilityResult, error) {
	patient, patientCtx, err := loadPatient(ctx, s.profiles, patientID)
	if err != nil {
		return domain.CompatibilityResult{}, err
	}
	caregiver, err := loadCaregiver(ctx, s.profiles, caregiverID)
	if err != nil {
		return domain.CompatibilityResult{}, err
	}
	res, err := s.scorer.Score(ctx, ScoreInput{
		Patient:          patient,
		Caregiver:        caregiver.Profile,
		PatientContext:   patientCtx,
		CaregiverContext: caregiver.Context,
	})
	if err != nil {
		return domain.CompatibilityResult{}, err
	}
	res.PatientID, res.CaregiverID = patient.OwnerID, caregiver.CaregiverID
	res.Caregiver = caregiver.Display
	return res, nil
}

// Create puntua el par y persiste un match activo junto a su primera entrada de historial.
func (s *MatchService) Create(ctx context.Context, patientID, caregiverID string) (domain.MatchRecord, error) {
	res, err := s.Preview(ctx, patientID, caregiverID)
	if err != nil {
		return domain.MatchRecord{}, err
	}
	patientID, caregiverID = res.PatientID, res.CaregiverID

	_, err = s.matches.FindActive(ctx, patientID, caregiverID)
	switch {
	case err == nil:
		return domain.MatchRecord{}, duplicateActive(patientID, caregiverID, nil)
	case !errors.Is(err, repository.ErrNotFound):
		return domain.MatchRecord{}, storageError("find active match", err)
	}

	now := s.now()
	features := make([]float32, len(res.Features))
	for i, v := range res.Features {
		features[i] = float32(v)
	}
	rec := domain.MatchRecord{
		ID:            s.newID(),
		PatientID:     patientID,
		CaregiverID:   caregiverID,
		Score:         res.Score,
		Grade:         res.Grade,
		Status:        domain.MatchActive,
		ScorerVersion: res.Provenance.ScorerVersion,
		Features:      features,
		Reason:        reasonMatchCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
		StartedAt:     &now,
	}
	entry := domain.MatchHistoryEntry{
		ID:        s.newID(),
		MatchID:   rec.ID,
		Status:    domain.MatchActive,
		Reason:    reasonMatchCreated,
		CreatedAt: now,
	}

	if err := s.matches.CreateActive(ctx, rec, entry); err != nil {
		if errors.Is(err, repository.ErrActiveMatchExists) {
			return domain.MatchRecord{}, duplicateActive(patientID, caregiverID, err)
		}
		return domain.MatchRecord{}, storageError("create match", err)
	}

	s.logger.Info("match created",
		zap.String("match_id", rec.ID),
		zap.String("patient_id", patientID),
		zap.String("caregiver_id", caregiverID),
		zap.Float64("score", rec.Score),
		zap.String("scorer", rec.ScorerVersion),
		zap.Bool("degraded", res.Provenance.Degraded),
	)
	s.invalidate(ctx, patientID)
	return rec, nil
}

// Cancel termina un match no terminal con el motivo indicado.
func (s *MatchService) Cancel(ctx context.Context, matchID, reason string) (domain.MatchRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.MatchRecord{}, invalidInput("cancellation reason is required")
	}
	return s.transition(ctx, matchID, domain.MatchCancelled, reason)
}

// Complete cierra un match activo; sin motivo usa "match completed".
func (s *MatchService) Complete(ctx context.Context, matchID, reason string) (domain.MatchRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = reasonMatchCompleted
	}
	return s.transition(ctx, matchID, domain.MatchCompleted, reason)
}

func (s *MatchService) transition(ctx context.Context, matchID string, to domain.MatchStatus, reason string) (domain.MatchRecord, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return domain.MatchRecord{}, invalidInput("match id is required")
	}

	rec, err := s.matches.Update(ctx, matchID, func(rec *domain.MatchRecord) (domain.MatchHistoryEntry, error) {
		if err := domain.CheckTransition(rec.Status, to); err != nil {
			return domain.MatchHistoryEntry{}, err
		}
		now := s.now()
		rec.Status = to
		rec.Reason = reason
		rec.UpdatedAt = now
		if to.Terminal() {
			rec.EndedAt = &now
		}
		return domain.MatchHistoryEntry{
			ID:        s.newID(),
			MatchID:   rec.ID,
			Status:    to,
			Reason:    reason,
			CreatedAt: now,
		}, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return domain.MatchRecord{}, domain.WrapError(domain.CodeMatchNotFound, domain.ErrMatchNotFound.Message, fmt.Errorf("match %s", matchID))
	}
	if err != nil {
		return domain.MatchRecord{}, storageError("update match", err)
	}

	s.logger.Info("match transitioned",
		zap.String("match_id", rec.ID),
		zap.String("patient_id", rec.PatientID),
		zap.String("status", string(rec.Status)),
	)
	s.invalidate(ctx, rec.PatientID)
	return rec, nil
}

// History devuelve los matches del paciente, el mas reciente primero, con datos del cuidador.
func (s *MatchService) History(ctx context.Context, patientID string) ([]domain.MatchView, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, invalidInput("patient id is required")
	}

	records, err := s.matches.Query(ctx, repository.MatchFilter{PatientID: patientID})
	if err != nil {
		return nil, storageError("query matches", err)
	}

	displays := make(map[string]*domain.CaregiverDisplay)
	views := make([]domain.MatchView, 0, len(records))
	for _, rec := range records {
		display, seen := displays[rec.CaregiverID]
		if !seen {
			d, err := s.profiles.FetchCaregiverDisplay(ctx, rec.CaregiverID)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if err != nil {
				s.logger.Warn("caregiver display lookup failed",
					zap.String("caregiver_id", rec.CaregiverID),
					zap.Error(err),
				)
			} else {
				display = &d
			}
			displays[rec.CaregiverID] = display
		}
		views = append(views, domain.MatchView{MatchRecord: rec, Caregiver: display})
	}
	return views, nil
}

// Entries devuelve el log de auditoria del match, el mas antiguo primero.
func (s *MatchService) Entries(ctx context.Context, matchID string) ([]domain.MatchHistoryEntry, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, invalidInput("match id is required")
	}
	if _, err := s.matches.Get(ctx, matchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.WrapError(domain.CodeMatchNotFound, domain.ErrMatchNotFound.Message, fmt.Errorf("match %s", matchID))
		}
		return nil, storageError("get match", err)
	}
	entries, err := s.matches.ListHistory(ctx, matchID)
	if err != nil {
		return nil, storageError("list history", err)
	}
	return entries, nil
}

func (s *MatchService) invalidate(ctx context.Context, patientID string) {
	if s.recs != nil {
		s.recs.Invalidate(ctx, patientID)
	}
}

func duplicateActive(patientID, caregiverID string, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("patient %s caregiver %s", patientID, caregiverID)
	}
	return domain.WrapError(domain.CodeDuplicateActiveMatch, domain.ErrDuplicateActiveMatch.Message, cause)
}
