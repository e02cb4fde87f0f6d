package repository

import (
	"context"
	"errors"
	"time"

	"care-match/internal/domain"
)

var (
	// ErrNotFound indica que la fila pedida no existe.
	ErrNotFound = errors.New("record not found")
	// ErrActiveMatchExists indica que el indice unico de matches activos rechazo la escritura.
	ErrActiveMatchExists = errors.New("active match already exists")
)

// CandidateFilter acota el pool de candidatos. Region es un prefijo de codigo de region.
type CandidateFilter struct {
	Region     string
	ExcludeIDs []string
	Limit      int
}

// MatchFilter selecciona matches para historial y evaluacion.
type MatchFilter struct {
	PatientID   string
	CaregiverID string
	Statuses    []domain.MatchStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ProfileRepository expone perfiles, contextos y datos de presentacion.
type ProfileRepository interface {
	FetchProfile(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.PersonalityProfile, error)
	FetchCareContext(ctx context.Context, ownerType domain.OwnerType, ownerID string) (domain.CareContext, error)
	FetchCandidates(ctx context.Context, filter CandidateFilter) ([]domain.CandidateCaregiver, error)
	FetchCaregiverDisplay(ctx context.Context, caregiverID string) (domain.CaregiverDisplay, error)
	UpsertProfile(ctx context.Context, profile domain.PersonalityProfile) error
	UpsertCareContext(ctx context.Context, careCtx domain.CareContext) error
	UpsertCaregiverDisplay(ctx context.Context, display domain.CaregiverDisplay) error
}

// MatchMutation modifica un match dentro de la transaccion de Update y devuelve
// la entrada de historial a registrar. Un error aborta la transaccion.
type MatchMutation func(rec *domain.MatchRecord) (domain.MatchHistoryEntry, error)

// MatchRepository persiste matches y su historial de auditoria.
type MatchRepository interface {
	// CreateActive inserta el match y su primera entrada de historial de forma atomica.
	CreateActive(ctx context.Context, rec domain.MatchRecord, entry domain.MatchHistoryEntry) error
	// Update bloquea el match, aplica fn y persiste el match junto a la entrada devuelta.
	Update(ctx context.Context, id string, fn MatchMutation) (domain.MatchRecord, error)
	Get(ctx context.Context, id string) (domain.MatchRecord, error)
	FindActive(ctx context.Context, patientID, caregiverID string) (domain.MatchRecord, error)
	Query(ctx context.Context, filter MatchFilter) ([]domain.MatchRecord, error)
	ListHistory(ctx context.Context, matchID string) ([]domain.MatchHistoryEntry, error)
}
