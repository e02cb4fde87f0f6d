package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"care-match/internal/domain"
)

// statusForCode traduce los codigos estables de dominio a status HTTP.
func statusForCode(code domain.Code) int {
	switch code {
	case domain.CodeNotFound, domain.CodePatientNotFound, domain.CodeCaregiverNotFound,
		domain.CodeMatchNotFound, domain.CodeProfileMissing:
		return http.StatusNotFound
	case domain.CodeInvalidInput, domain.CodeInvalidProfile:
		return http.StatusBadRequest
	case domain.CodeDuplicateActiveMatch, domain.CodeAlreadyTerminal:
		return http.StatusConflict
	case domain.CodeNoEligibleCandidates:
		return http.StatusUnprocessableEntity
	case domain.CodeModelUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError escribe {"error","code"}; el detalle interno solo va al log.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	code := domain.CodeOf(err)
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.String("code", string(code)), zap.Error(err))
	} else {
		logger.Warn(op+" rejected", zap.String("code", string(code)), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": domain.MessageOf(err), "code": code})
}

func invalidRequest(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Warn("invalid "+op+" request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": domain.CodeInvalidInput})
}
