package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sunrun/credithub/internal/handler"
	"sunrun/credithub/internal/service"
	jwtpkg "sunrun/credithub/pkg/jwt"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	// 1. Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// 3. Open credit store and ticket state store
	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// 4. Initialize services and handlers
	var creditsHandler *handler.CreditsHandler
	var adminHandler *handler.AdminHandler
	var jwtManager *jwtpkg.Manager
	if st.configured() {
		ledger := service.NewLedgerService(cfg.Ledger, st.accounts, st.codes, st.txr, st.tickets, logger)
		creditsHandler = handler.NewCreditsHandler(ledger, logger)

		if cfg.JWT.SigningKey != "" && len(cfg.Admin.UserIDs) > 0 {
			jwtManager = jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
			adminHandler = handler.NewAdminHandler(service.NewCodeService(st.codes, logger), logger)
		} else {
			logger.Info("admin endpoints disabled (jwt.signing_key or admin.user_ids not set)")
		}
	}

	// 5. Setup router and HTTP server
	router := handler.SetupRouter(cfg, logger, jwtManager, creditsHandler, adminHandler)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 6. Serve until interrupted, then shut down gracefully
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("store", cfg.Store.Backend),
			zap.Bool("refund_tickets", cfg.Ledger.RefundTickets.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.GracefulShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited gracefully")
	return nil
}
