package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	gogrpc "google.golang.org/grpc"

	"yamdb/internal/catalog"
	grpcserver "yamdb/internal/grpc"
	"yamdb/internal/httpapi"
	"yamdb/internal/review"
	"yamdb/internal/user"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bind both listeners before serving so a bad address fails the command
	// with nothing left running.
	httpLis, err := net.Listen("tcp", env.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	var grpcLis net.Listener
	if env.cfg.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", env.cfg.GRPCAddr); err != nil {
			httpLis.Close()
			return fmt.Errorf("listen grpc: %w", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	users := user.NewService(env.db, env.mailer, env.userConfig())
	cat := catalog.NewService(env.db)
	router := httpapi.NewRouter(httpapi.Deps{
		Users:    users,
		Catalog:  cat,
		Reviews:  review.NewService(env.db),
		Secret:   []byte(env.cfg.JWTSecret),
		PageSize: env.cfg.PageSize,
		Logger:   env.log,
	})
	httpSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		env.log.Info().Str("addr", httpLis.Addr().String()).Msg("HTTP API listening")
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *gogrpc.Server
	if grpcLis != nil {
		grpcSrv = grpcserver.NewGRPCServer(grpcserver.NewServer(cat, env.cfg.PageSize), env.log)
		go func() {
			env.log.Info().Str("addr", grpcLis.Addr().String()).Msg("gRPC server listening")
			if err := grpcSrv.Serve(grpcLis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		env.log.Info().Msg("shutting down")
	case err = <-errCh:
		env.log.Error().Err(err).Msg("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
	}
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		env.log.Error().Err(shutdownErr).Msg("http shutdown")
	}
	return err
}
