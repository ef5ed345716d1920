package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/config"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/experience"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/grpc/envserver"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/monitoring"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", -1, "The server port (-1 to use config default)")
	host := flag.String("host", "", "The server host (empty to use config default)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	maxEnvs := flag.Int("max-envs", -1, "Maximum concurrent environments, 0 for unlimited (-1 to use config default)")
	collect := flag.Bool("collect", false, "Collect experiences even if disabled in config")
	enableReflection := flag.Bool("enable-reflection", false, "Enable gRPC reflection for debugging")
	flag.Parse()

	// Initialize configuration
	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}

	cfg := config.Get()

	// Use config defaults if not overridden by flags
	if *port == -1 {
		*port = cfg.Server.GRPCServer.Port
	}
	if *host == "" {
		*host = cfg.Server.GRPCServer.Host
	}
	if *maxEnvs == -1 {
		*maxEnvs = cfg.Server.GRPCServer.MaxEnvs
	}
	if !*enableReflection {
		*enableReflection = cfg.Server.GRPCServer.EnableReflection
	}
	if !*collect {
		*collect = cfg.Experience.Enabled
	}

	level := cfg.ServerLogLevel()
	if *logLevel != "" {
		parsed, err := zerolog.ParseLevel(*logLevel)
		if err != nil {
			log.Fatal().Err(err).Str("log_level", *logLevel).Msg("Invalid log level")
		}
		level = parsed
	}
	setupLogging(level)

	log.Info().
		Int("port", *port).
		Str("host", *host).
		Int("max_envs", *maxEnvs).
		Int("width", cfg.Env.Width).
		Int("height", cfg.Env.Height).
		Float64("obstacle_prob", cfg.Env.ObstacleProb).
		Bool("collect", *collect).
		Str("config_file", config.ConfigFilePath()).
		Msg("Starting droplet environment server")

	serverConfig := envserver.ServerConfig{
		Env: cfg.EnvironmentConfig(),
		Manager: envserver.ManagerConfig{
			MaxEnvs:     *maxEnvs,
			IdleTimeout: cfg.Server.GRPCServer.IdleTimeout,
			LogEvents:   cfg.Server.GRPCServer.LogEvents,
		},
	}

	var collector *experience.Collector
	if *collect {
		persistence, err := experience.NewPersistenceLayer(cfg.Experience.Persistence, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create experience persistence")
		}
		collector = experience.NewCollector(cfg.Experience.BufferCapacity, persistence, log.Logger)
		serverConfig.Collector = collector
	}

	// Create listener
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			loggingInterceptor,
			recoveryInterceptor,
		),
	)

	envService := envserver.NewServer(serverConfig)
	envserver.RegisterEnvironmentServiceServer(grpcServer, envService)

	// Register health service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(envserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Reflection lists the service; its messages are google.protobuf.Struct
	if *enableReflection {
		reflection.Register(grpcServer)
		log.Info().Msg("gRPC reflection enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := monitoring.NewGoroutineMonitor(monitoring.DefaultMonitorConfig(), log.Logger)
	monitor.Register("active_envs", envService.Manager().ActiveEnvs)
	if collector != nil {
		monitor.Register("buffered_experiences", collector.Buffer().Size)
	}
	monitor.Start(ctx)

	config.WatchConfig(applyReloadedConfig)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(envserver.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		// Give ongoing requests time to complete
		time.Sleep(time.Duration(cfg.Server.GRPCServer.GracefulShutdownDelay) * time.Second)

		log.Info().Msg("Gracefully stopping gRPC server")
		grpcServer.GracefulStop()
		cancel()
	}()

	log.Info().Str("address", lis.Addr().String()).Msg("gRPC server listening")

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve")
		}
	}()

	<-ctx.Done()

	monitor.Stop()
	envService.Stop()
	if collector != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := collector.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("Failed to flush experiences")
		}
		closeCancel()
		stats := collector.Stats()
		log.Info().
			Int64("experiences", stats.Experiences).
			Int64("episodes", stats.Episodes).
			Int64("persisted", stats.Persisted).
			Msg("Experience collector closed")
	}
	log.Info().Msg("Server shutdown complete")
}

// setupLogging replaces the global logger. Call it only before any
// goroutine logs; reloads go through applyReloadedConfig.
func setupLogging(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)

	if os.Getenv("APP_ENV") == "production" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}

// applyReloadedConfig runs on the fsnotify goroutine while handlers log, so
// it only swaps the atomic global level.
func applyReloadedConfig(c *config.Config) {
	level := c.ServerLogLevel()
	zerolog.SetGlobalLevel(level)
	log.Info().Str("log_level", level.String()).Msg("Applied reloaded log level")
}

// loggingInterceptor logs all unary RPC calls
func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			code = st.Code()
		}
	}

	event := log.Debug()
	if code != codes.OK {
		event = log.Warn()
	}
	event.
		Str("method", info.FullMethod).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("gRPC call")

	return resp, err
}

// recoveryInterceptor catches panics and returns proper gRPC errors
func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("method", info.FullMethod).
				Interface("panic", r).
				Msg("Recovered from panic in gRPC handler")
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}
