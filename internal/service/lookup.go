package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"care-match/internal/domain"
	"care-match/internal/repository"
)

// storageError oculta el detalle del almacenamiento detras de un error interno.
// Los errores de dominio y de contexto pasan sin cambios.
func storageError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return domain.WrapError(domain.CodeInternal, "storage failure", fmt.Errorf("%s: %w", op, err))
}

func invalidInput(message string) error {
	return domain.NewError(domain.CodeInvalidInput, message)
}

// loadPatient obtiene perfil y contexto del paciente. Sin perfil pero con
// contexto el paciente existe y el error es ProfileMissing.
func loadPatient(ctx context.Context, profiles repository.ProfileRepository, patientID string) (*domain.PersonalityProfile, *domain.CareContext, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil, invalidInput("patient id is required")
	}

	careCtx, err := fetchCareContext(ctx, profiles, domain.OwnerPatient, patientID)
	if err != nil {
		return nil, nil, err
	}

	p, err := profiles.FetchProfile(ctx, domain.OwnerPatient, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		if careCtx != nil {
			return nil, nil, domain.WrapError(domain.CodeProfileMissing, "patient profile missing", fmt.Errorf("patient %s", patientID))
		}
		return nil, nil, domain.WrapError(domain.CodePatientNotFound, domain.ErrPatientNotFound.Message, fmt.Errorf("patient %s", patientID))
	}
	if err != nil {
		return nil, nil, storageError("fetch patient profile", err)
	}
	return &p, careCtx, nil
}

// loadCaregiver obtiene datos de presentacion, perfil y contexto del cuidador.
func loadCaregiver(ctx context.Context, profiles repository.ProfileRepository, caregiverID string) (domain.CandidateCaregiver, error) {
	caregiverID = strings.TrimSpace(caregiverID)
	if caregiverID == "" {
		return domain.CandidateCaregiver{}, invalidInput("caregiver id is required")
	}

	display, err := profiles.FetchCaregiverDisplay(ctx, caregiverID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.CandidateCaregiver{}, domain.WrapError(domain.CodeCaregiverNotFound, domain.ErrCaregiverNotFound.Message, fmt.Errorf("caregiver %s", caregiverID))
	}
	if err != nil {
		return domain.CandidateCaregiver{}, storageError("fetch caregiver", err)
	}

	p, err := profiles.FetchProfile(ctx, domain.OwnerCaregiver, caregiverID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.CandidateCaregiver{}, domain.WrapError(domain.CodeProfileMissing, "caregiver profile missing", fmt.Errorf("caregiver %s", caregiverID))
	}
	if err != nil {
		return domain.CandidateCaregiver{}, storageError("fetch caregiver profile", err)
	}

	careCtx, err := fetchCareContext(ctx, profiles, domain.OwnerCaregiver, caregiverID)
	if err != nil {
		return domain.CandidateCaregiver{}, err
	}
	return domain.CandidateCaregiver{CaregiverID: caregiverID, Profile: &p, Context: careCtx, Display: display}, nil
}

// fetchCareContext devuelve nil si el dueño no tiene contexto cargado.
func fetchCareContext(ctx context.Context, profiles repository.ProfileRepository, ownerType domain.OwnerType, ownerID string) (*domain.CareContext, error) {
	c, err := profiles.FetchCareContext(ctx, ownerType, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("fetch care context", err)
	}
	return &c, nil
}
