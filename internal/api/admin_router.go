package api

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"durakv/internal/config"
	"durakv/internal/core"
	"durakv/internal/logger"
	"durakv/internal/metrics"

	"github.com/o1egl/paseto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// AdminApiRouter exposes the operational surface over HTTP: stats,
// prometheus metrics, health, compaction, backup and restore. It is served
// on a separate port from the binary protocol.
type AdminApiRouter struct {
	Engine        *core.DatabaseEngine
	Configuration config.SystemConfiguration

	prometheusHandler fasthttp.RequestHandler
}

func NewAdminApiRouter(engine *core.DatabaseEngine, cfg config.SystemConfiguration, registry *prometheus.Registry) *AdminApiRouter {
	return &AdminApiRouter{
		Engine:        engine,
		Configuration: cfg,
		prometheusHandler: fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
	}
}

func (router *AdminApiRouter) GetFastHTTPHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		router.handleRequest(ctx)
	}
}

func (router *AdminApiRouter) handleRequest(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()
	defer func() {
		recoverPanic(ctx)
		logger.LogAccessEvent("%s %s %s %v", string(ctx.Method()), string(ctx.Path()), ctx.RemoteAddr(), time.Since(startTime))
	}()

	path := string(ctx.Path())

	// Health and metrics stay reachable without a token so probes and
	// scrapers keep working.
	switch path {
	case "/health":
		router.HandleHealthRequest(ctx)
		return
	case "/metrics":
		router.HandleMetricsRequest(ctx)
		return
	}

	if !router.checkAuth(ctx) {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	switch path {
	case "/stats":
		router.HandleStatsRequest(ctx)
	case "/compact":
		router.HandleCompactRequest(ctx)
	case "/backup":
		router.HandleBackupRequest(ctx)
	case "/restore":
		router.HandleRestoreRequest(ctx)
	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}

func (router *AdminApiRouter) checkAuth(ctx *fasthttp.RequestCtx) bool {
	configToken := router.Configuration.AuthenticationToken
	headerToken := string(ctx.Request.Header.Peek("Authorization"))

	if configToken == "" && headerToken == "" {
		return true
	}

	var footer string
	var claims paseto.JSONToken
	secretKey := []byte(fmt.Sprintf("%-32s", router.Configuration.AuthenticationSecret))[:32]

	return paseto.NewV2().Decrypt(headerToken, secretKey, &claims, &footer) == nil
}

func (router *AdminApiRouter) HandleHealthRequest(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	fmt.Fprintf(ctx, `{"status":"ok"}`)
}

func (router *AdminApiRouter) HandleMetricsRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "GET") {
		return
	}
	router.prometheusHandler(ctx)
}

func (router *AdminApiRouter) HandleStatsRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "GET") {
		return
	}

	payload := map[string]interface{}{
		"engine":   router.Engine.Stats(),
		"counters": metrics.GetCurrentState(),
	}

	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(payload)
}

func (router *AdminApiRouter) HandleCompactRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "POST") {
		return
	}

	if err := router.Engine.Compact(); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

func (router *AdminApiRouter) HandleBackupRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "POST") {
		return
	}

	backupPath := string(ctx.QueryArgs().Peek("path"))
	if backupPath == "" {
		ctx.Error("Missing path", fasthttp.StatusBadRequest)
		return
	}

	if err := router.Engine.Backup(backupPath); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

func (router *AdminApiRouter) HandleRestoreRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "POST") {
		return
	}

	backupPath := string(ctx.QueryArgs().Peek("path"))
	if backupPath == "" {
		ctx.Error("Missing path", fasthttp.StatusBadRequest)
		return
	}

	if err := router.Engine.Restore(backupPath); err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

func isMethodAllowed(ctx *fasthttp.RequestCtx, methods ...string) bool {
	requestMethod := string(ctx.Method())
	for _, method := range methods {
		if requestMethod == method {
			return true
		}
	}
	ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
	return false
}

func recoverPanic(ctx *fasthttp.RequestCtx) {
	if r := recover(); r != nil {
		logger.LogErrorEvent("PANIC: %v\n%s", r, debug.Stack())
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
	}
}
