package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"errcascade/internal/app"
	"errcascade/pkg/config"
	"errcascade/pkg/metrics"
	"errcascade/pkg/tracing"
)

func main() {
	configPath := flag.String("config", os.Getenv("ERRCASCADE_CONFIG"), "配置文件路径，为空时使用默认配置")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	ctx := context.Background()

	if cfg.Monitoring.Tracing.Enable {
		tp, err := tracing.InitTracer(ctx, tracing.OTelConfig{
			ServiceName:    cfg.Monitoring.Tracing.ServiceName,
			ExportEndpoint: cfg.Monitoring.Tracing.ExportEndpoint,
			Insecure:       cfg.Monitoring.Tracing.Insecure,
		})
		if err != nil {
			log.Fatalf("初始化链路追踪失败: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	bootstrap, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer bootstrap.Close()
	logger := bootstrap.Logger

	svc := app.NewService(bootstrap)
	seedCtx, cancelSeed := context.WithTimeout(ctx, 2*time.Minute)
	if _, err := svc.Seed(seedCtx); err != nil {
		// 播种失败不影响运行，图会随新错误增量建立
		logger.Warn("历史错误播种失败", "error", err)
	}
	cancelSeed()

	var metricsServer *http.Server
	if cfg.Monitoring.Prometheus.Enable {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
			if err := metrics.WritePrometheus(w); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		})
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics 服务异常退出", "error", err)
			}
		}()
		logger.Info("metrics 服务已启动", "addr", metricsServer.Addr)
	}

	st := svc.Stats()
	logger.Info("错误级联预测引擎已启动", "nodes", st.Nodes, "edges", st.Edges, "average_degree", st.AverageDegree)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("关闭 metrics 服务失败", "error", err)
		}
	}
	logger.Info("错误级联预测引擎已关闭")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}
