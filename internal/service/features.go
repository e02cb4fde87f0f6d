package service

import (
	"math"
	"strings"

	"care-match/internal/domain"
	"care-match/internal/model"
)

// MaxExperienceYears acota la experiencia que ve el modelo.
const MaxExperienceYears = 20.0

// Niveles de coincidencia de region.
const (
	RegionNoMatch  = 0.0
	RegionSameArea = 0.5
	RegionSameCity = 0.75
	RegionExact    = 1.0
)

// BuildFeatures construye el registro de features de un par. No valida perfiles:
// llamar despues de ScoreInput.validate.
func BuildFeatures(in ScoreInput) model.Features {
	diffs := profileDiffs(in.Patient, in.Caregiver)
	f := model.Features{
		EmpathyDiff:      diffs[0],
		ActivityDiff:     diffs[1],
		PatienceDiff:     diffs[2],
		IndependenceDiff: diffs[3],
		SpecialtyMatch:   1.0,
	}

	var required, offered []string
	if in.PatientContext != nil {
		required = in.PatientContext.Specialties
		f.PatientCareLevel = float64(in.PatientContext.CareLevel)
		f.PatientDiseaseCount = float64(in.PatientContext.DiseaseCount)
	}
	if in.CaregiverContext != nil {
		offered = in.CaregiverContext.Specialties
		f.ExperienceYears = math.Min(math.Max(in.CaregiverContext.ExperienceYears, 0), MaxExperienceYears)
		f.CaregiverSpecialtyN = float64(len(normalizeSet(offered)))
	}
	f.SpecialtyMatch = SpecialtyMatchRatio(required, offered)
	if in.PatientContext != nil && in.CaregiverContext != nil {
		f.RegionMatch = RegionTier(*in.PatientContext, *in.CaregiverContext)
	}
	return f
}

// SpecialtyMatchRatio es |requeridas ∩ ofrecidas| / |requeridas|, 1.0 sin requisitos.
func SpecialtyMatchRatio(required, offered []string) float64 {
	req := normalizeSet(required)
	if len(req) == 0 {
		return 1.0
	}
	off := normalizeSet(offered)
	matched := 0
	for s := range req {
		if _, ok := off[s]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(req))
}

// RegionTier compara codigos area-ciudad-distrito.
func RegionTier(a, b domain.CareContext) float64 {
	sa, sb := a.RegionSegments(), b.RegionSegments()
	if len(sa) == 0 || len(sb) == 0 {
		return RegionNoMatch
	}
	if strings.Join(sa, domain.RegionSeparator) == strings.Join(sb, domain.RegionSeparator) {
		return RegionExact
	}
	if len(sa) >= 2 && len(sb) >= 2 && sa[0] == sb[0] && sa[1] == sb[1] {
		return RegionSameCity
	}
	if sa[0] == sb[0] {
		return RegionSameArea
	}
	return RegionNoMatch
}

func normalizeSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}
