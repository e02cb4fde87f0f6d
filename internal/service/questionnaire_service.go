package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

const (
	// ItemsPerDimension es la cantidad de preguntas de cada bloque.
	ItemsPerDimension = 5
	likertMin         = 1
	likertMax         = 5
)

// QuestionnaireItem es una afirmacion Likert; Reverse invierte la escala.
type QuestionnaireItem struct {
	Dimension domain.Dimension `json:"dimension"`
	Text      string           `json:"text"`
	Reverse   bool             `json:"reverse"`
}

var questionnaire = []QuestionnaireItem{
	{Dimension: domain.DimensionEmpathy, Text: "Me doy cuenta rapido cuando alguien esta incomodo o preocupado."},
	{Dimension: domain.DimensionEmpathy, Text: "Escuchar los problemas de otros me resulta natural."},
	{Dimension: domain.DimensionEmpathy, Text: "Intento ponerme en el lugar de la otra persona antes de responder."},
	{Dimension: domain.DimensionEmpathy, Text: "Me afecta ver a alguien que sufre."},
	{Dimension: domain.DimensionEmpathy, Text: "Los sentimientos de los demas no suelen influir en mis decisiones.", Reverse: true},

	{Dimension: domain.DimensionActivity, Text: "Prefiero mantenerme en movimiento durante el dia."},
	{Dimension: domain.DimensionActivity, Text: "Disfruto de salir a caminar o hacer actividades al aire libre."},
	{Dimension: domain.DimensionActivity, Text: "Me gusta tener la agenda llena de actividades."},
	{Dimension: domain.DimensionActivity, Text: "Me aburro si paso mucho tiempo sin hacer nada."},
	{Dimension: domain.DimensionActivity, Text: "Prefiero los dias tranquilos en casa.", Reverse: true},

	{Dimension: domain.DimensionPatience, Text: "Puedo repetir una explicacion varias veces sin molestarme."},
	{Dimension: domain.DimensionPatience, Text: "Espero mi turno sin ponerme nervioso."},
	{Dimension: domain.DimensionPatience, Text: "Acepto que las cosas lleven el tiempo que necesitan."},
	{Dimension: domain.DimensionPatience, Text: "Mantengo la calma cuando algo sale distinto a lo planeado."},
	{Dimension: domain.DimensionPatience, Text: "Me irrita cuando los demas son lentos.", Reverse: true},

	{Dimension: domain.DimensionIndependence, Text: "Prefiero resolver mis cosas por mi cuenta."},
	{Dimension: domain.DimensionIndependence, Text: "Tomo decisiones sin necesitar la aprobacion de otros."},
	{Dimension: domain.DimensionIndependence, Text: "Me siento comodo organizando mi propia rutina."},
	{Dimension: domain.DimensionIndependence, Text: "Valoro tener espacio y tiempo propio."},
	{Dimension: domain.DimensionIndependence, Text: "Me cuesta hacer las cosas sin que alguien me acompañe.", Reverse: true},
}

// QuestionnaireService convierte respuestas del cuestionario en un perfil de personalidad.
type QuestionnaireService struct {
	profiles repository.ProfileRepository
	recs     cacheInvalidator
	logger   *zap.Logger
	now      func() time.Time
}

func NewQuestionnaireService(profiles repository.ProfileRepository, recs cacheInvalidator, logger *zap.Logger) *QuestionnaireService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionnaireService{
		profiles: profiles,
		recs:     recs,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Questions devuelve el cuestionario en el orden en que deben llegar las respuestas.
func (s *QuestionnaireService) Questions() []QuestionnaireItem {
	out := make([]QuestionnaireItem, len(questionnaire))
	copy(out, questionnaire)
	return out
}

// SubmitAnswers puntua las respuestas y guarda el perfil resultante.
func (s *QuestionnaireService) SubmitAnswers(ctx context.Context, ownerType, ownerID string, answers []int) (domain.PersonalityProfile, error) {
	owner, err := domain.ParseOwnerType(ownerType)
	if err != nil {
		return domain.PersonalityProfile{}, err
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.PersonalityProfile{}, invalidInput("owner id is required")
	}

	profile, err := ScoreAnswers(answers)
	if err != nil {
		return domain.PersonalityProfile{}, err
	}
	profile.OwnerType = owner
	profile.OwnerID = ownerID
	profile.UpdatedAt = s.now()

	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return domain.PersonalityProfile{}, storageError("upsert profile", err)
	}

	s.logger.Info("questionnaire scored",
		zap.String("owner_type", string(owner)),
		zap.String("owner_id", ownerID),
	)
	// Los rankings cacheados que incluyen a un cuidador expiran por TTL.
	if owner == domain.OwnerPatient && s.recs != nil {
		s.recs.Invalidate(ctx, ownerID)
	}
	return profile, nil
}

// ScoreAnswers calcula cada dimension como (media - 1) / 4 * 100 con un decimal.
func ScoreAnswers(answers []int) (domain.PersonalityProfile, error) {
	if len(answers) != len(questionnaire) {
		return domain.PersonalityProfile{}, domain.WrapError(domain.CodeInvalidInput, "wrong number of answers",
			fmt.Errorf("got %d answers, want %d", len(answers), len(questionnaire)))
	}

	sums := make(map[domain.Dimension]int, len(domain.Dimensions))
	for i, a := range answers {
		if a < likertMin || a > likertMax {
			return domain.PersonalityProfile{}, domain.WrapError(domain.CodeInvalidInput, "answer out of range",
				fmt.Errorf("answer %d is %d, want %d-%d", i+1, a, likertMin, likertMax))
		}
		item := questionnaire[i]
		if item.Reverse {
			a = likertMin + likertMax - a
		}
		sums[item.Dimension] += a
	}

	scale := func(d domain.Dimension) float64 {
		mean := float64(sums[d]) / ItemsPerDimension
		return math.Round((mean-likertMin)/(likertMax-likertMin)*1000) / 10
	}
	return domain.PersonalityProfile{
		Empathy:      scale(domain.DimensionEmpathy),
		Activity:     scale(domain.DimensionActivity),
		Patience:     scale(domain.DimensionPatience),
		Independence: scale(domain.DimensionIndependence),
	}, nil
}
