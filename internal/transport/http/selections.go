package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/cache"
)

type selectionRequest struct {
	RoomIDs  []int64 `json:"room_ids" validate:"required,min=1"`
	CheckIn  string  `json:"check_in" validate:"required"`
	CheckOut string  `json:"check_out" validate:"required"`
}

type selectionResponse struct {
	RoomIDs  []int64 `json:"room_ids"`
	CheckIn  string  `json:"check_in"`
	CheckOut string  `json:"check_out"`
}

// HandlePutSelection returns the handler for PUT /sessions/{sessionID}/selection.
func HandlePutSelection(store cache.SelectionStore, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")

		var req selectionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}

		checkIn, err := time.Parse(time.DateOnly, req.CheckIn)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "check_in must be an ISO-8601 date")
			return
		}
		checkOut, err := time.Parse(time.DateOnly, req.CheckOut)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "check_out must be an ISO-8601 date")
			return
		}

		sel := cache.Selection{RoomIDs: req.RoomIDs, CheckIn: checkIn, CheckOut: checkOut}
		if err := store.Put(r.Context(), sessionID, sel); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("put selection failed")
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, selectionResponse{
			RoomIDs:  sel.RoomIDs,
			CheckIn:  sel.CheckIn.Format(time.DateOnly),
			CheckOut: sel.CheckOut.Format(time.DateOnly),
		})
	}
}

// HandleGetSelection returns the handler for GET /sessions/{sessionID}/selection.
func HandleGetSelection(store cache.SelectionStore, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")

		sel, err := store.Get(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, cache.ErrSelectionNotFound) {
				writeError(w, http.StatusNotFound, codeSelectionNotFound, "selection not found")
				return
			}
			log.Error().Err(err).Str("session_id", sessionID).Msg("get selection failed")
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, selectionResponse{
			RoomIDs:  sel.RoomIDs,
			CheckIn:  sel.CheckIn.Format(time.DateOnly),
			CheckOut: sel.CheckOut.Format(time.DateOnly),
		})
	}
}

// HandleDeleteSelection returns the handler for DELETE /sessions/{sessionID}/selection.
func HandleDeleteSelection(store cache.SelectionStore, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")
		if err := store.Delete(r.Context(), sessionID); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("delete selection failed")
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
