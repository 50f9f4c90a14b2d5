package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeValidationFailed   = "validation_failed"
	codeInvalidDateRange   = "invalid_date_range"
	codeInvalidRoomCount   = "invalid_room_count"
	codeInvalidTTL         = "invalid_ttl"
	codeInvalidID          = "invalid_id"
	codeHoldNotFound       = "hold_not_found"
	codeRoomNotFound       = "room_not_found"
	codePaymentNotFound    = "payment_not_found"
	codeNoAvailability     = "no_availability"
	codeHoldExpired        = "hold_expired"
	codeAlreadyConverted   = "hold_already_converted"
	codeInvalidHoldState   = "invalid_hold_state"
	codeSelectionNotFound  = "selection_not_found"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the hold engine's sentinel errors onto 4xx responses.
// Anything unmapped is a storage or connectivity failure and becomes a 500,
// logged with the operation and token for diagnosis.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, op, token string, err error) {
	switch {
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, codeRoomNotFound, err.Error())
	case errors.Is(err, domain.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, codePaymentNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidDateRange):
		writeError(w, http.StatusBadRequest, codeInvalidDateRange, err.Error())
	case errors.Is(err, domain.ErrInvalidRoomCount):
		writeError(w, http.StatusBadRequest, codeInvalidRoomCount, err.Error())
	case errors.Is(err, domain.ErrInvalidTTL):
		writeError(w, http.StatusBadRequest, codeInvalidTTL, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrNoAvailability):
		writeError(w, http.StatusConflict, codeNoAvailability, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrHoldAlreadyConverted):
		writeError(w, http.StatusConflict, codeAlreadyConverted, err.Error())
	case errors.Is(err, domain.ErrInvalidHoldState):
		writeError(w, http.StatusConflict, codeInvalidHoldState, err.Error())
	default:
		log.Error().Err(err).Str("op", op).Str("hold_token", token).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
