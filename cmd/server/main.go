package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "cca-polling/docs"
	"cca-polling/internal/config"
	"cca-polling/internal/domain/membership"
	"cca-polling/internal/domain/poll"
	"cca-polling/internal/domain/user"
	"cca-polling/internal/domain/vote"
	api "cca-polling/internal/http"
	"cca-polling/internal/logger"
	"cca-polling/internal/metrics"
	"cca-polling/internal/platform/database"
	jwtpkg "cca-polling/internal/platform/jwt"
	"cca-polling/internal/repository/gormstore"
	"cca-polling/internal/repository/memory"
	"cca-polling/internal/repository/postgres"
	"cca-polling/internal/worker"
)

// backend bundles the repositories of one storage driver.
type backend struct {
	users   user.Repository
	polls   poll.Repository
	members membership.Repository
	votes   vote.Store
	ready   func(ctx context.Context) error
	close   func() error
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := database.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return &backend{
			users:   postgres.NewUserRepo(db),
			polls:   postgres.NewPollRepo(db),
			members: postgres.NewMembershipRepo(db),
			votes:   postgres.NewVoteRepo(db),
			ready:   db.PingContext,
			close:   db.Close,
		}, nil

	case config.DriverSQLite, config.DriverMySQL:
		store, err := gormstore.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("%s open: %w", cfg.DBDriver, err)
		}
		return &backend{
			users:   store.Users(),
			polls:   store.Polls(),
			members: store.Members(),
			votes:   store.Votes(),
			ready:   func(context.Context) error { return store.Ping() },
			close:   store.Close,
		}, nil

	default:
		db := memory.New()
		return &backend{
			users:   db.Users(),
			polls:   db.Polls(),
			members: db.Members(),
			votes:   db.Votes(),
			close:   func() error { return nil },
		}, nil
	}
}

// ensureAdmin registers the bootstrap administrator if needed and makes
// sure the account holds the admin role.
func ensureAdmin(ctx context.Context, users *user.Service, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	u, err := users.Register(ctx, email, "Administrator", password)
	if errors.Is(err, user.ErrEmailTaken) {
		u, err = users.Login(ctx, email, password)
	}
	if err != nil {
		return err
	}
	if u.Role == user.RoleAdmin {
		return nil
	}
	return users.UpdateRole(ctx, u.ID, user.RoleAdmin)
}

// @title           CCA Polling API
// @version         1.0
// @description     Poll voting for CCA members with attributable and anonymous ballots
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("storage unavailable", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer be.close()

	members := membership.NewChecker(be.members)
	userSvc := user.NewService(be.users)
	pollSvc := poll.NewService(be.polls, members)
	voteSvc := vote.NewService(be.votes, be.polls, members, vote.Config{
		TokenSecret: []byte(cfg.VoteTokenSecret),
		TokenTTL:    cfg.VoteTokenTTL,
	})

	if err := ensureAdmin(ctx, userSvc, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("admin bootstrap failed", zap.Error(err))
	}

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh)
	go statsWorker.Run(ctx)

	router := api.NewRouter(api.Deps{
		Users:          userSvc,
		Polls:          pollSvc,
		Votes:          voteSvc,
		Members:        members,
		JWT:            jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		VoteEvents:     voteCh,
		Ready:          be.ready,
		VoteRatePerMin: cfg.VoteRatePerMin,
		VoteRateBurst:  cfg.VoteRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
