package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"cca-polling/internal/domain/membership"
	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
	"cca-polling/internal/domain/vote"
	jwtpkg "cca-polling/internal/platform/jwt"
	"cca-polling/internal/worker"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Users   *user.Service
	Polls   *poll.Service
	Votes   *vote.Service
	Members *membership.Checker
	JWT     *jwtpkg.Manager

	// VoteEvents receives one event per accepted ballot; sends never block.
	VoteEvents chan<- worker.VoteEvent
	// Ready reports whether the storage backend is reachable.
	Ready func(ctx context.Context) error

	VoteRatePerMin int
	VoteRateBurst  int
}

type Handler struct {
	userSvc    *user.Service
	pollSvc    *poll.Service
	voteSvc    *vote.Service
	members    *membership.Checker
	jwtMgr     *jwtpkg.Manager
	voteCh     chan<- worker.VoteEvent
	readyCheck func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		userSvc:    d.Users,
		pollSvc:    d.Polls,
		voteSvc:    d.Votes,
		members:    d.Members,
		jwtMgr:     d.JWT,
		voteCh:     d.VoteEvents,
		readyCheck: d.Ready,
	}

	perMin := d.VoteRatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	burst := d.VoteRateBurst
	if burst <= 0 {
		burst = 5
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.JWT, d.Users))

			r.Get("/polls", h.handleListPolls)
			r.Post("/polls", h.handleCreatePoll)
			r.Get("/polls/{id}", h.handlePollStatus)
			r.Patch("/polls/{id}/active", h.handleSetPollActive)
			r.With(RateLimitVotes(rate.Every(time.Minute/time.Duration(perMin)), burst)).
				Post("/polls/{id}/vote", h.handleVote)
			r.Get("/polls/{id}/results", h.handlePollResults)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(user.RoleAdmin))
				r.Post("/ccas", h.handleCreateCCA)
				r.Post("/ccas/{id}/members", h.handleAddMember)
				r.Get("/users", h.handleListUsers)
				r.Get("/users/{id}", h.handleGetUser)
				r.Patch("/users/{id}/role", h.handleUpdateUserRole)
				r.Patch("/users/{id}/deactivate", h.handleDeactivateUser)
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.readyCheck == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.readyCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
