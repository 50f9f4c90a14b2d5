package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ExpirySweeper triggers the hold expiry sweep on demand.
type ExpirySweeper interface {
	ExpireOverdueHolds(ctx context.Context) (int, error)
}

// PaymentSweeper triggers the payment timeout sweep on demand.
type PaymentSweeper interface {
	TimeoutStalePayments(ctx context.Context, threshold time.Duration) (int, error)
}

type sweepResponse struct {
	Processed int `json:"processed"`
}

// HandleSweepHolds returns the handler for POST /admin/sweeps/holds, the
// manual trigger mirroring the periodic expiry sweeper.
func HandleSweepHolds(svc ExpirySweeper, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processed, err := svc.ExpireOverdueHolds(r.Context())
		if err != nil {
			writeDomainError(w, log, "sweep_holds", "", err)
			return
		}
		writeJSON(w, http.StatusOK, sweepResponse{Processed: processed})
	}
}

type sweepPaymentsRequest struct {
	TimeoutMinutes int `json:"timeout_minutes"`
}

// HandleSweepPayments returns the handler for POST /admin/sweeps/payments.
// The body may override the configured timeout threshold.
func HandleSweepPayments(svc PaymentSweeper, defaultTimeout time.Duration, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold := defaultTimeout

		body, err := io.ReadAll(r.Body)
		if err == nil && len(body) > 0 {
			var req sweepPaymentsRequest
			if err := json.Unmarshal(body, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.TimeoutMinutes < 0 {
				writeError(w, http.StatusBadRequest, codeInvalidTTL, "timeout_minutes must not be negative")
				return
			}
			if req.TimeoutMinutes > 0 {
				threshold = time.Duration(req.TimeoutMinutes) * time.Minute
			}
		}

		processed, err := svc.TimeoutStalePayments(r.Context(), threshold)
		if err != nil {
			writeDomainError(w, log, "sweep_payments", "", err)
			return
		}
		writeJSON(w, http.StatusOK, sweepResponse{Processed: processed})
	}
}
