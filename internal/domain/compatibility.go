package domain

// Grade es la escala canonica de calificaciones para todos los scorers.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
)

// Grades lista la escala de mayor a menor.
var Grades = []Grade{GradeAPlus, GradeA, GradeBPlus, GradeB, GradeC}

// GradeForScore aplica la escala fina del scorer por reglas.
// Cada limite inferior es inclusivo.
func GradeForScore(score float64) Grade {
	switch {
	case score >= 95:
		return GradeAPlus
	case score >= 85:
		return GradeA
	case score >= 75:
		return GradeBPlus
	case score >= 65:
		return GradeB
	default:
		return GradeC
	}
}

// CoarseGradeForScore aplica la escala gruesa del scorer aprendido.
func CoarseGradeForScore(score float64) Grade {
	switch {
	case score >= 70:
		return GradeA
	case score >= 50:
		return GradeB
	default:
		return GradeC
	}
}

// SubScores son los puntajes por eje, cada uno en [0,100].
type SubScores struct {
	Empathy      float64 `json:"empathy"`
	Activity     float64 `json:"activity"`
	Patience     float64 `json:"patience"`
	Independence float64 `json:"independence"`
}

// Sum suma los cuatro sub-puntajes; se usa como primer desempate del ranking.
func (s SubScores) Sum() float64 {
	return s.Empathy + s.Activity + s.Patience + s.Independence
}

// Provenance indica que scorer produjo un resultado.
type Provenance struct {
	ScorerVersion string `json:"scorer_version"`
	Degraded      bool   `json:"degraded"`
}

// CompatibilityResult es el resultado de puntuar un par paciente-cuidador.
type CompatibilityResult struct {
	PatientID   string           `json:"patient_id"`
	CaregiverID string           `json:"caregiver_id"`
	Score       float64          `json:"score"`
	Grade       Grade            `json:"grade"`
	SubScores   SubScores        `json:"sub_scores"`
	Rationale   string           `json:"rationale"`
	Provenance  Provenance       `json:"provenance"`
	Features    []float64        `json:"-"`
	Caregiver   CaregiverDisplay `json:"caregiver"`
}
