package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/app"
	"github.com/cpehesara/StayOps-sub001/internal/domain"
)

var validate = validator.New()

// HoldManager is the slice of the hold service the hold handlers need.
type HoldManager interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
	GetHoldByToken(ctx context.Context, token string) (domain.Hold, error)
	ExtendHold(ctx context.Context, token string, additionalMinutes int) (domain.Hold, error)
	CancelHold(ctx context.Context, token string) (domain.Hold, error)
	ActiveHoldsByGuest(ctx context.Context, guestID string) ([]domain.Hold, error)
	BeginPayment(ctx context.Context, in app.BeginPaymentInput) (domain.PaymentTransaction, error)
}

type createHoldRequest struct {
	SessionID  string  `json:"session_id" validate:"required"`
	GuestID    string  `json:"guest_id"`
	RoomIDs    []int64 `json:"room_ids"`
	RoomType   string  `json:"room_type"`
	RoomCount  int     `json:"room_count" validate:"gte=0"`
	CheckIn    string  `json:"check_in" validate:"required"`
	CheckOut   string  `json:"check_out" validate:"required"`
	TTLMinutes int     `json:"ttl_minutes" validate:"gte=0,lte=1440"`
}

type holdResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	GuestID   string    `json:"guest_id,omitempty"`
	RoomIDs   []int64   `json:"room_ids"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func toHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		Token:     h.Token,
		SessionID: h.SessionID,
		GuestID:   h.GuestID,
		RoomIDs:   h.RoomIDs,
		CheckIn:   h.CheckIn.Format(time.DateOnly),
		CheckOut:  h.CheckOut.Format(time.DateOnly),
		Status:    string(h.Status),
		ExpiresAt: h.ExpiresAt,
		CreatedAt: h.CreatedAt,
	}
}

// HandleCreateHold returns the handler for POST /holds.
func HandleCreateHold(svc HoldManager, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createHoldRequest
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

		hold, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			SessionID:  req.SessionID,
			GuestID:    req.GuestID,
			RoomIDs:    req.RoomIDs,
			RoomType:   req.RoomType,
			RoomCount:  req.RoomCount,
			CheckIn:    checkIn,
			CheckOut:   checkOut,
			TTLMinutes: req.TTLMinutes,
		})
		if err != nil {
			writeDomainError(w, log, "create_hold", "", err)
			return
		}

		writeJSON(w, http.StatusCreated, toHoldResponse(hold))
	}
}

// HandleGetHold returns the handler for GET /holds/{token}. Reads trigger
// lazy expiry, so an overdue hold comes back already expired.
func HandleGetHold(svc HoldManager, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")
		hold, err := svc.GetHoldByToken(r.Context(), token)
		if err != nil {
			writeDomainError(w, log, "get_hold", token, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldResponse(hold))
	}
}

type extendHoldRequest struct {
	AdditionalMinutes int `json:"additional_minutes" validate:"required,gt=0"`
}

// HandleExtendHold returns the handler for PATCH /holds/{token}/extend.
func HandleExtendHold(svc HoldManager, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		var req extendHoldRequest
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

		hold, err := svc.ExtendHold(r.Context(), token, req.AdditionalMinutes)
		if err != nil {
			writeDomainError(w, log, "extend_hold", token, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldResponse(hold))
	}
}

// HandleCancelHold returns the handler for DELETE /holds/{token}.
// Cancellation is idempotent; a terminal hold answers 200 unchanged.
func HandleCancelHold(svc HoldManager, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")
		hold, err := svc.CancelHold(r.Context(), token)
		if err != nil {
			writeDomainError(w, log, "cancel_hold", token, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldResponse(hold))
	}
}

// HandleGuestHolds returns the handler for GET /guests/{guestID}/holds.
func HandleGuestHolds(svc HoldManager, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guestID := r.PathValue("guestID")
		holds, err := svc.ActiveHoldsByGuest(r.Context(), guestID)
		if err != nil {
			writeDomainError(w, log, "guest_holds", "", err)
			return
		}

		out := make([]holdResponse, 0, len(holds))
		for _, h := range holds {
			out = append(out, toHoldResponse(h))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type beginPaymentRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required,len=3"`
}

type paymentResponse struct {
	ID        string    `json:"id"`
	HoldToken string    `json:"hold_token"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleBeginPayment returns the handler for POST /holds/{token}/payment.
func HandleBeginPayment(svc HoldManager, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		var req beginPaymentRequest
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

		payment, err := svc.BeginPayment(r.Context(), app.BeginPaymentInput{
			Token:    token,
			Amount:   req.Amount,
			Currency: req.Currency,
		})
		if err != nil {
			writeDomainError(w, log, "begin_payment", token, err)
			return
		}

		writeJSON(w, http.StatusCreated, paymentResponse{
			ID:        payment.ID,
			HoldToken: payment.HoldToken,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Status:    string(payment.Status),
			CreatedAt: payment.CreatedAt,
		})
	}
}
