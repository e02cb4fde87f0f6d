package service

import (
	"fmt"
	"strings"

	"care-match/internal/domain"
	"care-match/internal/model"
)

// RationaleDelimiter separa los fragmentos del rationale.
const RationaleDelimiter = "; "

const (
	qualifierAligned  = "aligned"
	qualifierMinorGap = "minor gap"
	qualifierGap      = "gap"
)

// DimensionQualifier clasifica la diferencia de un eje.
func DimensionQualifier(diff float64) string {
	switch {
	case diff < 15:
		return qualifierAligned
	case diff < 30:
		return qualifierMinorGap
	default:
		return qualifierGap
	}
}

// Explain genera un rationale determinista a partir del registro de features.
func Explain(f model.Features) string {
	diffs := f.Diffs()
	parts := make([]string, 0, len(domain.Dimensions)+3)
	for i, d := range domain.Dimensions {
		parts = append(parts, fmt.Sprintf("%s %s", d, DimensionQualifier(diffs[i])))
	}
	parts = append(parts, specialtyRemark(f.SpecialtyMatch), regionRemark(f.RegionMatch), experienceRemark(f.ExperienceYears))
	return strings.Join(parts, RationaleDelimiter)
}

func specialtyRemark(ratio float64) string {
	switch {
	case ratio >= 1:
		return "required specialties covered"
	case ratio > 0:
		return fmt.Sprintf("%.0f%% of required specialties covered", ratio*100)
	default:
		return "required specialties not covered"
	}
}

func regionRemark(tier float64) string {
	switch {
	case tier >= RegionExact:
		return "same district"
	case tier >= RegionSameCity:
		return "same city"
	case tier >= RegionSameArea:
		return "same area"
	default:
		return "different region"
	}
}

func experienceRemark(years float64) string {
	switch {
	case years >= 10:
		return fmt.Sprintf("extensive experience (%.0f years)", years)
	case years >= 3:
		return fmt.Sprintf("%.0f years of experience", years)
	case years > 0:
		return "limited experience"
	default:
		return "no recorded experience"
	}
}
