package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"jobmate/matching-service/internal/api"
	"jobmate/matching-service/internal/grpcserver"
	"jobmate/matching-service/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC APIs, the enrichment worker and the scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	scorer, worker, err := a.enrichment(ctx)
	if err != nil {
		return err
	}
	worker.Subscribe(a.bus)
	go worker.Run(ctx)

	if err := a.bridge.Start(ctx); err != nil {
		return err
	}

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched, err := scheduler.New(a.cfg.ScrapeIntervalHours, worker.CatchUp, log)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	api.NewHandler(api.Deps{
		Ingestor: a.ingestion,
		Progress: a.progress,
		Hydrator: a.hydration,
		Scorer:   scorer,
		Mover:    a.kanban,
		Store:    a.db,
		Bus:      a.bus,
	}, log).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // discovery runs wait on every provider
	}

	go func() {
		log.Info("http listening", zap.String("version", version), zap.String("port", a.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	gs := grpc.NewServer()
	grpcserver.Register(gs, grpcserver.NewServer(a.ingestion, a.hydration, scorer, a.progress, a.kanban, log))

	go func() {
		log.Info("grpc listening", zap.String("port", a.cfg.GRPCPort))
		if err := gs.Serve(lis); err != nil {
			log.Fatal("grpc server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown error", zap.Error(err))
	}
	gs.GracefulStop()
	cancel()
	log.Info("stopped")
	return nil
}
