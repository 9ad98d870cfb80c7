package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	natsio "github.com/nats-io/nats.go"
	"github.com/pgx-contrib/pgxtrace"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/auth"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/permission"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/proxy"
	natsproxy "github.com/f1plots/f1dash-service-manager-go/pkg/api/proxy/nats"
	"github.com/f1plots/f1dash-service-manager-go/pkg/api/server"
	"github.com/f1plots/f1dash-service-manager-go/pkg/config"
	"github.com/f1plots/f1dash-service-manager-go/pkg/db/postgres"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

var appConfig config.Config // holds processed config values

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "starts the HTTP API server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			appConfig = config.Config{}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmd.Flags().StringVarP(&config.APIServerAddr,
		"api-server-addr",
		"a",
		"localhost:8080",
		"API server listen address")
	cmd.Flags().StringVar(&config.TLSServerAddr,
		"tls-server-addr",
		"",
		"API server listen address (TLS), requires cert configuration")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"path to TLS certificate")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"path to TLS key")
	cmd.Flags().StringVar(&config.TLSCAFile,
		"tls-ca",
		"",
		"path to TLS root CA used to verify client certs")
	cmd.Flags().StringVar(&config.TraefikCerts,
		"traefik-certs",
		"",
		"path to traefik acme.json file")
	cmd.Flags().StringVar(&config.TraefikCertDomain,
		"traefik-cert-domain",
		"",
		"the domain to lookup within the traefik certs")
	cmd.Flags().IntVar(&config.MaxConcurrentStreams,
		"max-concurrent-streams",
		0,
		"max number of concurrent streams per http/2 connection (0: library default)")

	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"debug",
		"controls the log level for sql methods")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.LogConfig,
		"log-config",
		"",
		"log config file with filter rules (see log.Config)")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().BoolVar(&appConfig.PrintMessage,
		"print-message",
		false,
		"if true and log level is debug, the message payload will be printed")
	cmd.Flags().StringVar(&config.AdminToken,
		"admin-token",
		"",
		"admin token value")
	cmd.Flags().StringVar(&config.ProviderToken,
		"provider-token",
		"",
		"provider token value")
	cmd.Flags().StringVar(&config.StaleDuration,
		"stale-duration",
		"1h",
		"analysis session is evicted if not used for this duration")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// resolveLogSettings merges the optional log config file into the flag
// values. Flag defaults lose against the file, filter rules only come from
// the file.
func resolveLogSettings() (level log.Level, filterRules string) {
	level = parseLogLevel(config.LogLevel, log.InfoLevel)
	if config.LogConfig == "" {
		return level, ""
	}
	cfg, err := log.LoadConfig(config.LogConfig)
	if err != nil {
		log.Warn("Could not read log config", log.ErrorField(err))
		return level, ""
	}
	if cfg.DefaultLevel != "" {
		level = parseLogLevel(cfg.DefaultLevel, level)
	}
	return level, cfg.Filters
}

//nolint:funlen,cyclop // by design
func startServer() error {
	var logger *log.Logger
	var sqlLogger *log.Logger
	var telemetry *config.Telemetry
	logLevel, filterRules := resolveLogSettings()
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			logLevel,
			log.WithCaller(true),
			log.AddCallerSkip(1),
			log.WithFilterRules(filterRules))
		sqlLogger = log.New(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))

	default:
		logger = log.DevLogger(
			os.Stderr,
			logLevel,
			log.WithCaller(true),
			log.AddCallerSkip(1),
			log.WithFilterRules(filterRules))

		sqlLogger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}

	log.ResetDefault(logger)

	log.Debug("Config:",
		log.String("addr", config.APIServerAddr),
		log.String("db", config.DB),
		log.String("nats", config.NatsURL),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	pgTracer := pgxtrace.CompositeQueryTracer{
		postgres.NewMyTracer(sqlLogger, log.DebugLevel),
	}
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(context.Background()); err == nil {
			pgTracer = append(pgTracer, postgres.NewOtlpTracer())
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	log.Info("Starting server")
	pool := postgres.InitWithUrl(
		config.DB,
		postgres.WithTracer(pgTracer),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	staleDuration, err := time.ParseDuration(config.StaleDuration)
	if err != nil {
		staleDuration = 1 * time.Hour
	}
	log.Debug("init with stale duration", log.Duration("duration", staleDuration))
	sessionLookup := utils.NewSessionLookup(utils.WithStaleDuration(staleDuration))
	sessionProxy := setupSessionProxy(ctx)

	apiServer := server.NewServer(
		server.WithPersistence(pool),
		server.WithSessionLookup(sessionLookup),
		server.WithPermissionEvaluator(permission.NewPermissionEvaluator()),
		server.WithSessionProxy(sessionProxy),
	)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(
		auth.WithAdminToken(config.AdminToken),
		auth.WithProviderToken(config.ProviderToken),
	)
	handler := server.RequestID(
		server.AccessLog(logger.Named("api.access"), authMiddleware.Wrap(mux)))
	//nolint:gosec // by design
	h2cHandler := h2c.NewHandler(newCORS().Handler(handler), &http2.Server{
		MaxConcurrentStreams: uint32(config.MaxConcurrentStreams),
	})

	//nolint:gosec // by design
	httpServer := &http.Server{
		Addr:    config.APIServerAddr,
		Handler: h2cHandler,
	}
	go func() {
		log.Info("Starting API server", log.String("addr", config.APIServerAddr))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil &&
			!errors.Is(serveErr, http.ErrServerClosed) {

			log.Fatal("server could not be started", log.ErrorField(serveErr))
		}
	}()
	tlsServer := setupTLSServer(ctx, h2cHandler)

	go sessionJanitor(ctx, sessionLookup, sessionProxy, staleDuration)
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	v := <-sigChan
	log.Debug("Got signal ", log.Any("signal", v))
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("could not shutdown API server", log.ErrorField(err))
	}
	if tlsServer != nil {
		if err := tlsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("could not shutdown TLS server", log.ErrorField(err))
		}
	}
	sessionProxy.Close()
	if telemetry != nil {
		telemetry.Shutdown()
	}

	log.Info("Server terminated")
	return nil
}

// setupTLSServer starts the TLS listener when configured. Returns nil when
// no TLS listener is wanted or no certificate could be loaded.
func setupTLSServer(ctx context.Context, handler http.Handler) *http.Server {
	if config.TLSServerAddr == "" {
		return nil
	}
	tlsConfig := NewTLSConfigProvider(ctx)
	if tlsConfig == nil {
		log.Warn("TLS server addr configured but no usable certificate found")
		return nil
	}
	//nolint:gosec // by design
	tlsServer := &http.Server{
		Addr:      config.TLSServerAddr,
		Handler:   handler,
		TLSConfig: tlsConfig,
	}
	go func() {
		log.Info("Starting API server (TLS)", log.String("addr", config.TLSServerAddr))
		if err := tlsServer.ListenAndServeTLS("", ""); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {

			log.Fatal("TLS server could not be started", log.ErrorField(err))
		}
	}()
	return tlsServer
}

func setupSessionProxy(ctx context.Context) proxy.SessionProxy {
	if config.NatsURL == "" {
		log.Info("No NATS server configured, live updates stay in-process")
		return &proxy.EmptyProxy{}
	}
	nc, err := natsio.Connect(config.NatsURL)
	if err != nil {
		log.Fatal("could not connect to NATS server", log.ErrorField(err))
	}
	ret, err := natsproxy.NewNatsProxy(nc,
		natsproxy.WithContext(ctx),
		natsproxy.WithPrintMessage(appConfig.PrintMessage))
	if err != nil {
		log.Fatal("could not create NATS proxy", log.ErrorField(err))
	}
	log.Info("Using NATS proxy", log.String("url", config.NatsURL))
	return ret
}

// sessionJanitor periodically evicts stale analysis sessions.
//
//nolint:whitespace // editor/linter issue
func sessionJanitor(
	ctx context.Context,
	lookup *utils.SessionLookup,
	sessionProxy proxy.SessionProxy,
	staleDuration time.Duration,
) {
	interval := staleDuration / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sessionID := range lookup.RemoveStale() {
				log.Info("evicted stale session", log.String("sessionId", sessionID))
				sessionProxy.DeleteSessionCallback(sessionID)
			}
		}
	}
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTcp := func(addr string) {
		if err = utils.WaitForTCP(addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
		wg.Done()
	}

	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		wg.Add(1)
		go checkTcp(postgresAddr)
	}
	if config.NatsURL != "" {
		if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
			wg.Add(1)
			go checkTcp(natsAddr)
		}
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}

func newCORS() *cors.Cors {
	// The dashboard frontends are served from other origins, so the API
	// needs a permissive CORS setup.
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			// Allow all origins, which effectively disables CORS.
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			// Content-Type is in the default safelist.
			"Accept",
			"Accept-Encoding",
			"Content-Encoding",
			"X-Request-Id",
		},
		// Let browsers cache CORS information for longer, which reduces the number
		// of preflight requests.
		MaxAge: int(2 * time.Hour / time.Second),
	})
}
