// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"itinera/internal/ai"
	"itinera/internal/modules/aiusage"
	"itinera/internal/modules/itinerary"
	"itinera/internal/service"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Rule    string `json:"rule,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writePlannerError maps a pipeline failure to a status by its stage and cause.
func writePlannerError(c *gin.Context, err error) {
	stage, _ := service.StageOf(err)
	switch stage {
	case service.StageAuthenticated:
		msg := "invalid or expired token"
		if errors.Is(err, service.ErrMissingToken) {
			msg = service.ErrMissingToken.Error()
		}
		writeError(c, http.StatusUnauthorized, msg)
	case service.StageValidated:
		var ve *itinerary.ValidationError
		if errors.As(err, &ve) {
			writeJSON(c, http.StatusBadRequest, errorResponse{Error: ve.Message, Rule: string(ve.Rule)})
			return
		}
		writeError(c, http.StatusBadRequest, err.Error())
	case service.StageGenerating:
		var ue *ai.UpstreamError
		switch {
		case errors.Is(err, aiusage.ErrQuotaExhausted):
			writeError(c, http.StatusTooManyRequests, aiusage.ErrQuotaExhausted.Error())
		case errors.As(err, &ue):
			writeError(c, http.StatusBadGateway, ue.Error())
		case errors.Is(err, ai.ErrMalformedResponse):
			writeError(c, http.StatusBadGateway, "invalid response from generation API")
		default:
			writeError(c, http.StatusInternalServerError, "itinerary generation failed")
		}
	case service.StagePersisting:
		writeError(c, http.StatusInternalServerError, "failed to save itinerary; resubmit the same request to retry without regenerating")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// writeReadError maps list/detail failures.
func writeReadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, itinerary.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
