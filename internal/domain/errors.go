package domain

import "errors"

// Code es un codigo de error estable expuesto a los consumidores.
type Code string

const (
	CodeNotFound             Code = "NOT_FOUND"
	CodePatientNotFound      Code = "PATIENT_NOT_FOUND"
	CodeCaregiverNotFound    Code = "CAREGIVER_NOT_FOUND"
	CodeMatchNotFound        Code = "MATCH_NOT_FOUND"
	CodeProfileMissing       Code = "PROFILE_MISSING"
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeInvalidProfile       Code = "INVALID_PROFILE"
	CodeDuplicateActiveMatch Code = "DUPLICATE_ACTIVE_MATCH"
	CodeAlreadyTerminal      Code = "ALREADY_TERMINAL"
	CodeNoEligibleCandidates Code = "NO_ELIGIBLE_CANDIDATES"
	CodeModelUnavailable     Code = "MODEL_UNAVAILABLE"
	CodeTimeout              Code = "TIMEOUT"
	CodeInternal             Code = "INTERNAL"
)

// Error es el error de dominio: codigo estable, mensaje seguro y causa opcional.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compara por codigo, de modo que errors.Is(err, ErrMatchNotFound) funciona
// aunque el mensaje sea distinto.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError crea un error de dominio sin causa.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError crea un error de dominio que envuelve una causa interna.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels para comparar con errors.Is.
var (
	ErrPatientNotFound      = NewError(CodePatientNotFound, "patient not found")
	ErrCaregiverNotFound    = NewError(CodeCaregiverNotFound, "caregiver not found")
	ErrMatchNotFound        = NewError(CodeMatchNotFound, "match not found")
	ErrProfileMissing       = NewError(CodeProfileMissing, "profile missing")
	ErrInvalidInput         = NewError(CodeInvalidInput, "invalid input")
	ErrInvalidProfile       = NewError(CodeInvalidProfile, "invalid profile")
	ErrDuplicateActiveMatch = NewError(CodeDuplicateActiveMatch, "an active match already exists for this pair")
	ErrAlreadyTerminal      = NewError(CodeAlreadyTerminal, "match is already in a terminal state")
	ErrNoEligibleCandidates = NewError(CodeNoEligibleCandidates, "no eligible candidates")
	ErrModelUnavailable     = NewError(CodeModelUnavailable, "scoring model unavailable")
	ErrTimeout              = NewError(CodeTimeout, "operation timed out")
)

// CodeOf devuelve el codigo estable de err, o CodeInternal si no es un error de dominio.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf devuelve el mensaje seguro de err sin detalles internos.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
