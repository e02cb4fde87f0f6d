package domain

import (
	"fmt"
	"time"
)

// MatchStatus es el unico vocabulario de estados de un match.
type MatchStatus string

const (
	MatchRecommended MatchStatus = "recommended"
	MatchSelected    MatchStatus = "selected"
	MatchActive      MatchStatus = "active"
	MatchCompleted   MatchStatus = "completed"
	MatchCancelled   MatchStatus = "cancelled"
)

// MatchStatuses lista los estados en orden de ciclo de vida.
var MatchStatuses = []MatchStatus{MatchRecommended, MatchSelected, MatchActive, MatchCompleted, MatchCancelled}

// recommended no se persiste: solo existe en la respuesta del ranking.
// Create inserta el match directamente en active, sin pasar por esta tabla.
var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchRecommended: {MatchSelected},
	MatchSelected:    {MatchActive, MatchCancelled},
	MatchActive:      {MatchCompleted, MatchCancelled},
}

// Terminal indica si el estado no admite mas transiciones.
func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchCancelled
}

// Valid indica si el estado pertenece al vocabulario.
func (s MatchStatus) Valid() bool {
	for _, st := range MatchStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransition reporta si from -> to esta permitido por la tabla de transiciones.
func CanTransition(from, to MatchStatus) bool {
	for _, next := range matchTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition devuelve ErrAlreadyTerminal o un InvalidInput si from -> to no esta permitido.
func CheckTransition(from, to MatchStatus) error {
	if from.Terminal() {
		return WrapError(CodeAlreadyTerminal, ErrAlreadyTerminal.Message, fmt.Errorf("status %s", from))
	}
	if !CanTransition(from, to) {
		return WrapError(CodeInvalidInput, "transition not allowed", fmt.Errorf("%s -> %s", from, to))
	}
	return nil
}

// MatchRecord es un emparejamiento persistido y su estado.
type MatchRecord struct {
	ID            string      `json:"id"`
	PatientID     string      `json:"patient_id"`
	CaregiverID   string      `json:"caregiver_id"`
	Score         float64     `json:"score"`
	Grade         Grade       `json:"grade"`
	Status        MatchStatus `json:"status"`
	ScorerVersion string      `json:"scorer_version"`
	Features      []float32   `json:"-"`
	Reason        string      `json:"reason"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	StartedAt     *time.Time  `json:"started_at,omitempty"`
	EndedAt       *time.Time  `json:"ended_at,omitempty"`
}

// MatchHistoryEntry es una entrada inmutable del log de auditoria de un match.
type MatchHistoryEntry struct {
	ID        string      `json:"id"`
	MatchID   string      `json:"match_id"`
	Status    MatchStatus `json:"status"`
	Reason    string      `json:"reason"`
	CreatedAt time.Time   `json:"created_at"`
}

// MatchView es un MatchRecord anotado con datos de presentacion del cuidador.
type MatchView struct {
	MatchRecord
	Caregiver *CaregiverDisplay `json:"caregiver,omitempty"`
}

// Ratings del evaluador de desempeño.
const (
	RatingExcellent        = "excellent"
	RatingGood             = "good"
	RatingFair             = "fair"
	RatingNeedsImprovement = "needs improvement"
)

// PerformanceSummary agrega los matches creados en una ventana de tiempo.
type PerformanceSummary struct {
	Start           time.Time           `json:"start"`
	End             time.Time           `json:"end"`
	Count           int                 `json:"count"`
	MeanScore       float64             `json:"mean_score"`
	GradeHistogram  map[Grade]int       `json:"grade_histogram"`
	StatusHistogram map[MatchStatus]int `json:"status_histogram"`
	Rating          string              `json:"rating"`
	Message         string              `json:"message,omitempty"`
}
