package main

import (
	"context"
	"errors"
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
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/httpapi"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/kafka"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC ledger service and the HTTP query API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	b, err := openBackend(cfg, log, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			log.Warn("Failed to close store", zap.Error(err))
		}
	}()

	opts := []usecase.Option{
		usecase.WithLogger(log),
		usecase.WithOpTimeout(cfg.Ledger.OpTimeout),
	}
	if cfg.Kafka.Enabled {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Kafka.WriteTimeout)
		if err := kafka.EnsureTopic(ctx, cfg.Kafka, log); err != nil {
			// topic 可能由叢集自動建立，這裡只警告
			log.Warn("Failed to ensure kafka topic", zap.String("topic", cfg.Kafka.Topic), zap.Error(err))
		}
		cancel()

		publisher, err := kafka.NewPublisher(cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, usecase.WithEventPublisher(publisher))
	}
	core := usecase.NewCoreUseCase(b.store, opts...)

	// gRPC
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcadapter.LoggingInterceptor(log)))
	grpcadapter.RegisterLedgerServiceServer(grpcServer, grpcadapter.NewGrpcServer(core))
	if cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	// HTTP
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewServer(core, b.health, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case sig := <-quit:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		log.Error("Server stopped unexpectedly", zap.Error(serveErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	stopGRPC(ctx, grpcServer)
	log.Info("Server exited")
	return serveErr
}

// stopGRPC 等待進行中的請求完成，逾時則強制停止
func stopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("gRPC graceful stop timed out, forcing stop")
		s.Stop()
	}
}
