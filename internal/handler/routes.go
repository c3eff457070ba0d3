package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripsplit/tripsplit/internal/auth"
	"github.com/tripsplit/tripsplit/internal/middleware"
	"github.com/tripsplit/tripsplit/internal/service"
)

// Services bundles the service layer for route registration.
type Services struct {
	Auth     *service.AuthService
	Trips    *service.TripService
	Expenses *service.ExpenseService
}

// NewRouter builds the full API mux: public auth endpoints, protected
// trip/expense endpoints behind JWT validation, plus /metrics and
// /healthz.
func NewRouter(svcs Services, jwtManager *auth.JWTManager) http.Handler {
	authHandler := NewAuthHandler(svcs.Auth)
	tripHandler := NewTripHandler(svcs.Trips)
	expenseHandler := NewExpenseHandler(svcs.Expenses)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/trips", tripHandler.List)
	protected.HandleFunc("POST /api/trips", tripHandler.Create)
	protected.HandleFunc("GET /api/trips/{tripID}", tripHandler.Get)
	protected.HandleFunc("PATCH /api/trips/{tripID}", tripHandler.Update)
	protected.HandleFunc("DELETE /api/trips/{tripID}", tripHandler.Delete)
	protected.HandleFunc("POST /api/trips/{tripID}/participants", tripHandler.AddParticipant)
	protected.HandleFunc("POST /api/trips/{tripID}/expenses", expenseHandler.Create)
	protected.HandleFunc("GET /api/trips/{tripID}/balances", expenseHandler.Balances)
	protected.HandleFunc("PATCH /api/expenses/{expenseID}", expenseHandler.Update)
	protected.HandleFunc("DELETE /api/expenses/{expenseID}", expenseHandler.Delete)
	mux.Handle("/api/", middleware.RequireAuth(jwtManager)(protected))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.Logging(middleware.Metrics(middleware.CORS(mux)))
}
