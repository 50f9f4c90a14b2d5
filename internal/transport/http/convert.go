package http

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/app"
)

// HoldConverter is the minimal interface needed to convert a hold.
type HoldConverter interface {
	ConvertHold(ctx context.Context, token string) (app.ConvertHoldResult, error)
}

type convertHoldResponse struct {
	ReservationID string    `json:"reservation_id"`
	HoldToken     string    `json:"hold_token"`
	GuestID       string    `json:"guest_id,omitempty"`
	RoomIDs       []int64   `json:"room_ids"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// HandleConvertHold returns the handler for POST /holds/{token}/convert.
// 201 on the converting call, 200 when an in-flight duplicate got the same
// reservation back.
func HandleConvertHold(svc HoldConverter, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		res, err := svc.ConvertHold(r.Context(), token)
		if err != nil {
			writeDomainError(w, log, "convert_hold", token, err)
			return
		}

		resp := convertHoldResponse{
			ReservationID: res.Reservation.ID,
			HoldToken:     res.Reservation.HoldToken,
			GuestID:       res.Reservation.GuestID,
			RoomIDs:       res.Reservation.RoomIDs,
			CheckIn:       res.Reservation.CheckIn.Format(time.DateOnly),
			CheckOut:      res.Reservation.CheckOut.Format(time.DateOnly),
			Status:        "confirmed",
			CreatedAt:     res.Reservation.CreatedAt,
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, resp)
	}
}
