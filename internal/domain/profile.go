package domain

import (
	"fmt"
	"strings"
	"time"
)

// OwnerType identifica a quien pertenece un perfil.
type OwnerType string

const (
	OwnerPatient   OwnerType = "patient"
	OwnerCaregiver OwnerType = "caregiver"
)

// ParseOwnerType normaliza y valida un owner type recibido como texto.
func ParseOwnerType(value string) (OwnerType, error) {
	switch OwnerType(strings.ToLower(strings.TrimSpace(value))) {
	case OwnerPatient:
		return OwnerPatient, nil
	case OwnerCaregiver:
		return OwnerCaregiver, nil
	default:
		return "", WrapError(CodeInvalidInput, "unknown owner type", fmt.Errorf("owner type %q", value))
	}
}

// Dimension es uno de los cuatro ejes de personalidad.
type Dimension string

const (
	DimensionEmpathy      Dimension = "empathy"
	DimensionActivity     Dimension = "activity"
	DimensionPatience     Dimension = "patience"
	DimensionIndependence Dimension = "independence"
)

// Dimensions lista los ejes en orden de presentacion.
var Dimensions = []Dimension{DimensionEmpathy, DimensionActivity, DimensionPatience, DimensionIndependence}

const (
	DimensionMin = 0.0
	DimensionMax = 100.0
)

// PersonalityProfile describe a un paciente o cuidador en los cuatro ejes.
type PersonalityProfile struct {
	OwnerType    OwnerType `json:"owner_type"`
	OwnerID      string    `json:"owner_id"`
	Empathy      float64   `json:"empathy"`
	Activity     float64   `json:"activity"`
	Patience     float64   `json:"patience"`
	Independence float64   `json:"independence"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Value devuelve el valor del eje pedido.
func (p PersonalityProfile) Value(d Dimension) float64 {
	switch d {
	case DimensionEmpathy:
		return p.Empathy
	case DimensionActivity:
		return p.Activity
	case DimensionPatience:
		return p.Patience
	case DimensionIndependence:
		return p.Independence
	default:
		return 0
	}
}

// Validate verifica que todos los ejes esten dentro de [0,100].
func (p PersonalityProfile) Validate() error {
	for _, d := range Dimensions {
		v := p.Value(d)
		if v != v || v < DimensionMin || v > DimensionMax {
			return WrapError(CodeInvalidProfile, "profile dimension out of range",
				fmt.Errorf("%s %s: %s=%v", p.OwnerType, p.OwnerID, d, v))
		}
	}
	return nil
}

// CareContext agrupa los datos de contexto de cuidado de un dueño de perfil.
// Specialties son las requeridas para pacientes y las ofrecidas para cuidadores.
type CareContext struct {
	OwnerType       OwnerType `json:"owner_type"`
	OwnerID         string    `json:"owner_id"`
	CareLevel       int       `json:"care_level"`
	Specialties     []string  `json:"specialties"`
	Region          string    `json:"region"`
	ExperienceYears float64   `json:"experience_years"`
	DiseaseCount    int       `json:"disease_count"`
}

// RegionSeparator separa los segmentos area-ciudad-distrito de un codigo de region.
const RegionSeparator = "-"

// RegionSegments devuelve los segmentos no vacios del codigo de region.
func (c CareContext) RegionSegments() []string {
	raw := strings.Split(strings.TrimSpace(c.Region), RegionSeparator)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

// CaregiverDisplay son atributos de presentacion; nunca intervienen en el puntaje.
type CaregiverDisplay struct {
	CaregiverID string  `json:"caregiver_id"`
	DisplayName string  `json:"display_name"`
	HourlyRate  float64 `json:"hourly_rate"`
	Rating      float64 `json:"rating"`
}

// CandidateCaregiver es un cuidador elegible para ranking.
// Profile es nil cuando el cuidador todavia no completo su perfil.
type CandidateCaregiver struct {
	CaregiverID string              `json:"caregiver_id"`
	Profile     *PersonalityProfile `json:"profile,omitempty"`
	Context     *CareContext        `json:"context,omitempty"`
	Display     CaregiverDisplay    `json:"display"`
}
