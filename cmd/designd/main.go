package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/loadcurve/internal/arrival"
	"github.com/GoSim-25-26J-441/loadcurve/internal/designd"
	"github.com/GoSim-25-26J-441/loadcurve/internal/form"
	"github.com/GoSim-25-26J-441/loadcurve/internal/metrics"
	"github.com/GoSim-25-26J-441/loadcurve/internal/policy"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/config"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/logger"
	"github.com/GoSim-25-26J-441/loadcurve/pkg/models"
)

// newSelector registers the configured arrival patterns on top of the built-ins
func newSelector(cfg *config.Config) (*arrival.Selector, error) {
	sel := arrival.NewSelector()
	for _, ap := range cfg.ArrivalPatterns {
		err := sel.Register(arrival.Policy{
			Tag:         ap.Tag,
			Timing:      arrival.Timing(ap.Timing),
			Description: ap.Description,
		})
		if err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func newStore(cfg *config.Config, collector *metrics.Collector) (*designd.DesignStore, error) {
	sel, err := newSelector(cfg)
	if err != nil {
		return nil, err
	}
	duration, err := cfg.Defaults.GetDuration()
	if err != nil {
		return nil, err
	}
	interval, err := cfg.Defaults.GetInterval()
	if err != nil {
		return nil, err
	}
	defaults := form.Defaults{
		ClientsPerHost: cfg.Defaults.ClientsPerHost,
		ArrivalPattern: cfg.Defaults.ArrivalPattern,
		MaxRate:        cfg.Defaults.MaxRPS,
		Curve:          models.CurveKind(cfg.Defaults.Curve),
	}
	if err := sel.Validate(defaults.ArrivalPattern); err != nil {
		return nil, err
	}
	return designd.NewDesignStore(cfg.Services,
		designd.WithSelector(sel),
		designd.WithTimingDefaults(duration, interval),
		designd.WithFormDefaults(defaults),
		designd.WithStoreMetrics(collector),
		designd.WithStoreLogger(logger.Default),
	), nil
}

// preload adds the experiment files named on the command line
func preload(store *designd.DesignStore, paths []string) {
	for _, path := range paths {
		def, err := config.LoadExperiment(path)
		if err != nil {
			logger.Error("failed to load experiment", "path", path, "error", err)
			continue
		}
		view, err := store.CreateFromDefinition(models.ExperimentMeta{}, def)
		if err != nil {
			logger.Error("failed to create experiment", "path", path, "error", err)
			continue
		}
		logger.Info("experiment loaded", "path", path, "experiment_id", view.ID, "ready", view.Ready)
	}
}

func main() {
	var configPath string
	var grpcAddr string
	var httpAddr string
	var logLevel string

	flag.StringVar(&configPath, "config", "config/config.yaml", "daemon configuration file")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides config)")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error; overrides config)")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if grpcAddr != "" {
		cfg.GRPCAddr = grpcAddr
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.SetDefault(logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout))

	collector := metrics.NewCollector()
	store, err := newStore(cfg, collector)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	preload(store, flag.Args())

	submitter, err := designd.NewSubmitterFromConfig(cfg.Engine)
	if err != nil {
		logger.Error("invalid engine configuration", "error", err)
		os.Exit(1)
	}
	if submitter == nil {
		logger.Warn("no engine configured, submissions are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		// TODO: Configure gRPC server security (e.g., TLS, authentication)
		// before exposing this service outside a trusted network.
		grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(designd.RecoveryInterceptor))
		designd.RegisterDesignServiceServer(grpcServer, designd.NewDesignGRPCServer(store))

		grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen for gRPC", "addr", cfg.GRPCAddr, "error", err)
			stop()
			os.Exit(1)
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				logger.Error("gRPC server error", "error", err)
				stop()
			}
		}()
	}

	api := designd.NewHTTPServer(store, submitter, collector)
	if cfg.RateLimitRPS > 0 {
		limiter := policy.NewRateLimiter(cfg.RateLimitRPS)
		api.SetRateLimiter(limiter)
		logger.Info("API policy enabled", "policy", limiter.Name(), "rps_per_client", cfg.RateLimitRPS)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
