package model

// Features es el registro nombrado de entrada del modelo.
// El orden posicional vive solo en FeatureOrder y Vector.
type Features struct {
	EmpathyDiff         float64 `json:"empathy_diff"`
	ActivityDiff        float64 `json:"activity_diff"`
	PatienceDiff        float64 `json:"patience_diff"`
	IndependenceDiff    float64 `json:"independence_diff"`
	SpecialtyMatch      float64 `json:"specialty_match"`
	RegionMatch         float64 `json:"region_match"`
	ExperienceYears     float64 `json:"experience_years"`
	CaregiverSpecialtyN float64 `json:"caregiver_specialty_count"`
	PatientCareLevel    float64 `json:"patient_care_level"`
	PatientDiseaseCount float64 `json:"patient_disease_count"`
}

// FeatureOrder es el orden de columnas con el que se entrenan los modelos.
var FeatureOrder = []string{
	"empathy_diff",
	"activity_diff",
	"patience_diff",
	"independence_diff",
	"specialty_match",
	"region_match",
	"experience_years",
	"caregiver_specialty_count",
	"patient_care_level",
	"patient_disease_count",
}

// FeatureCount es la longitud del vector de entrada.
const FeatureCount = 10

// Vector convierte el registro al orden de FeatureOrder.
func (f Features) Vector() []float64 {
	return []float64{
		f.EmpathyDiff,
		f.ActivityDiff,
		f.PatienceDiff,
		f.IndependenceDiff,
		f.SpecialtyMatch,
		f.RegionMatch,
		f.ExperienceYears,
		f.CaregiverSpecialtyN,
		f.PatientCareLevel,
		f.PatientDiseaseCount,
	}
}

// Float32 devuelve el vector en precision simple, como se persiste en la columna vector.
func (f Features) Float32() []float32 {
	v := f.Vector()
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// FeaturesFromVector reconstruye el registro desde un vector ordenado.
func FeaturesFromVector(v []float64) (Features, bool) {
	if len(v) != FeatureCount {
		return Features{}, false
	}
	return Features{
		EmpathyDiff:         v[0],
		ActivityDiff:        v[1],
		PatienceDiff:        v[2],
		IndependenceDiff:    v[3],
		SpecialtyMatch:      v[4],
		RegionMatch:         v[5],
		ExperienceYears:     v[6],
		CaregiverSpecialtyN: v[7],
		PatientCareLevel:    v[8],
		PatientDiseaseCount: v[9],
	}, true
}

// Diffs devuelve las cuatro diferencias por eje en orden empathy, activity, patience, independence.
func (f Features) Diffs() [4]float64 {
	return [4]float64{f.EmpathyDiff, f.ActivityDiff, f.PatienceDiff, f.IndependenceDiff}
}
