package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/cache"
)

// RouterDeps carries everything the route table needs.
type RouterDeps struct {
	Holds                 HoldManager
	Converter             HoldConverter
	ExpirySweep           ExpirySweeper
	PaymentSweep          PaymentSweeper
	DefaultPaymentTimeout time.Duration
	Selections            cache.SelectionStore
	Metrics               bool
	Log                   zerolog.Logger
}

// NewRouter builds the service mux.
func NewRouter(deps RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", HealthHandler)
	if deps.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.Handle("POST /holds", HandleCreateHold(deps.Holds, deps.Log))
	mux.Handle("GET /holds/{token}", HandleGetHold(deps.Holds, deps.Log))
	mux.Handle("PATCH /holds/{token}/extend", HandleExtendHold(deps.Holds, deps.Log))
	mux.Handle("POST /holds/{token}/convert", HandleConvertHold(deps.Converter, deps.Log))
	mux.Handle("POST /holds/{token}/payment", HandleBeginPayment(deps.Holds, deps.Log))
	mux.Handle("DELETE /holds/{token}", HandleCancelHold(deps.Holds, deps.Log))
	mux.Handle("GET /guests/{guestID}/holds", HandleGuestHolds(deps.Holds, deps.Log))

	mux.Handle("POST /admin/sweeps/holds", HandleSweepHolds(deps.ExpirySweep, deps.Log))
	mux.Handle("POST /admin/sweeps/payments", HandleSweepPayments(deps.PaymentSweep, deps.DefaultPaymentTimeout, deps.Log))

	if deps.Selections != nil {
		mux.Handle("PUT /sessions/{sessionID}/selection", HandlePutSelection(deps.Selections, deps.Log))
		mux.Handle("GET /sessions/{sessionID}/selection", HandleGetSelection(deps.Selections, deps.Log))
		mux.Handle("DELETE /sessions/{sessionID}/selection", HandleDeleteSelection(deps.Selections, deps.Log))
	}

	mux.Handle("/", NotFoundHandler())
	return mux
}
