package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"durakv/internal/agents"
	"durakv/internal/api"
	"durakv/internal/config"
	"durakv/internal/core"
	"durakv/internal/logger"
	"durakv/internal/metrics"
	"durakv/internal/server"

	"github.com/o1egl/paseto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

func main() {
	cfgPath := flag.String("config", "", "Config path")
	flag.Parse()

	cfg, err := config.LoadConfigurationFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}

	// `server [port]` overrides the configured port.
	if flag.NArg() > 0 {
		port, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			log.Fatalf("Invalid port %q", flag.Arg(0))
		}
		cfg.ServerPort = port
	}

	if err := logger.InitializeLogger(cfg.LogDirectoryPath, cfg.LogSeverityLevel); err != nil {
		log.Fatal(err)
	}
	defer logger.ShutdownLogger()

	configureRuntime(cfg)

	engine := core.NewDatabaseEngine()
	if err := engine.Initialize(cfg.DataDirectoryPath); err != nil {
		logger.LogErrorEvent("Failed to initialize database: %v", err)
		logger.ShutdownLogger()
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics.RegisterPrometheusCollectors(registry)
	stopMonitor := metrics.StartSystemMonitor(cfg.DataDirectoryPath + "/wal")
	stopCheckpoints := agents.StartCheckpointAgentInBackground(engine, cfg.DataDirectoryPath, cfg.CheckpointIntervalInSeconds)

	dbServer := server.NewDatabaseServer(engine, cfg)
	if err := dbServer.Start(); err != nil {
		logger.LogErrorEvent("Failed to start server: %v", err)
		engine.Shutdown()
		logger.ShutdownLogger()
		os.Exit(1)
	}

	var adminServer *fasthttp.Server
	if cfg.EnableAdminApi {
		printAdminToken(cfg)
		router := api.NewAdminApiRouter(engine, cfg, registry)
		adminServer = &fasthttp.Server{Handler: router.GetFastHTTPHandler()}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.AdminPort)
			logger.LogInfoEvent("Admin API listening on %s", addr)
			if err := adminServer.ListenAndServe(addr); err != nil {
				logger.LogErrorEvent("Admin API error: %v", err)
			}
		}()
	}

	waitForShutdownSignal()

	logger.LogInfoEvent("Shutting down...")
	stopCheckpoints()
	stopMonitor()
	if adminServer != nil {
		adminServer.Shutdown()
	}
	dbServer.Stop()
	engine.Shutdown()
}

func configureRuntime(cfg config.SystemConfiguration) {
	if cfg.MaximumCpuCount > 0 {
		runtime.GOMAXPROCS(cfg.MaximumCpuCount)
	}
}

func printAdminToken(cfg config.SystemConfiguration) {
	if cfg.AuthenticationToken != "" {
		return
	}
	key := []byte(fmt.Sprintf("%-32s", cfg.AuthenticationSecret))[:32]
	token, _ := paseto.NewV2().Encrypt(key, paseto.JSONToken{
		Subject: "admin", Expiration: time.Now().Add(24 * time.Hour),
	}, "")
	fmt.Printf("ADMIN TOKEN: %s\n", token)
}

func waitForShutdownSignal() {
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	received := <-signalChannel
	logger.LogInfoEvent("Received signal %v", received)
}
