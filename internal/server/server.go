package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"runewallet/pkg/logger"
)

// App 同时承载 HTTP API 和 gRPC 健康探针
type App struct {
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcAddr     string
	healthServer *health.Server
}

func NewApp(httpAddr, grpcAddr string, router http.Handler) *App {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return &App{
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcServer:   grpcServer,
		grpcAddr:     grpcAddr,
		healthServer: healthServer,
	}
}

// Start 启动两个监听, 任一失败都直接退出
func (a *App) Start() {
	go func() {
		logger.Info("HTTP 服务启动", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务异常退出", zap.Error(err))
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			logger.Fatal("gRPC 监听失败", zap.Error(err))
		}
		logger.Info("gRPC 健康服务启动", zap.String("addr", a.grpcAddr))
		a.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		if err := a.grpcServer.Serve(lis); err != nil {
			logger.Fatal("gRPC 服务异常退出", zap.Error(err))
		}
	}()
}

// Shutdown 优雅停机: 先摘探针, 再停 HTTP, 最后停 gRPC
func (a *App) Shutdown(ctx context.Context) {
	a.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP 停机失败", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-ctx.Done():
		a.grpcServer.Stop()
	case <-stopped:
	}

	logger.Info("服务已停止")
}
