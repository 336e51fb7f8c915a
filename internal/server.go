package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/whole2swole/internal/auth"
	"github.com/2beens/whole2swole/internal/config"
	"github.com/2beens/whole2swole/internal/db"
	"github.com/2beens/whole2swole/internal/gateway"
	"github.com/2beens/whole2swole/internal/middleware"
	"github.com/2beens/whole2swole/internal/store"
	"github.com/2beens/whole2swole/internal/store/memstore"
	"github.com/2beens/whole2swole/internal/store/postgres"
	"github.com/2beens/whole2swole/internal/store/supabase"
	"github.com/2beens/whole2swole/internal/telemetry/metrics"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"
	"github.com/2beens/whole2swole/internal/web"
	"github.com/2beens/whole2swole/pkg"
)

const (
	storeKindSupabase = "supabase"
	storeKindPostgres = "postgres"
	storeKindMemory   = "memory"

	sessionsCleanupInterval = 8 * time.Hour
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config  *config.Config
	env     *config.Env
	dbPool  *pgxpool.Pool
	store   store.Store
	gateway *gateway.Gateway
	gate    *auth.SoloGate

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config      *config.Config
	Env         *config.Env
	VersionInfo string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	otelShutdown := func() {}
	if params.Env.HoneycombEnabled {
		// use honeycomb distro to setup OpenTelemetry SDK
		shutdown, err := tracing.HoneycombSetup("whole2swole")
		if err != nil {
			return nil, fmt.Errorf("honeycomb setup: %w", err)
		}
		otelShutdown = shutdown
	}

	backingStore, dbPool, err := openStore(ctx, params.Env)
	if err != nil {
		return nil, err
	}

	var collectors []prometheus.Collector
	if dbPool != nil {
		collectors = append(collectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": dbPool.Config().ConnConfig.Database},
		))
	}
	promRegistry := metrics.SetupPrometheus(collectors...)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.Env.RedisPassword,
		DB:       0, // use default DB
	})
	if params.Env.HoneycombEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(params.Config.SessionTTL, rdb)
	go func() {
		ticker := time.NewTicker(sessionsCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				authService.ScanAndClean(ctx)
			}
		}
	}()

	gw := gateway.New(backingStore, metricsManager)
	if err := gw.Init(ctx); err != nil {
		// not fatal, the user can still sign in and refresh
		log.Errorf("gateway init: %s", err)
	}

	return &Server{
		config:      params.Config,
		env:         params.Env,
		versionInfo: params.VersionInfo,
		dbPool:      dbPool,
		store:       backingStore,
		gateway:     gw,
		gate: auth.NewSoloGate(
			params.Env.SoloUsername,
			params.Env.SoloEmail,
			backingStore,
			metricsManager,
		),

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(params.Config.SessionTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

// storeKind maps the store URL scheme to a backing store.
func storeKind(storeURL string) (string, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return "", fmt.Errorf("parse store url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return storeKindSupabase, nil
	case "postgres", "postgresql":
		return storeKindPostgres, nil
	case "memory":
		return storeKindMemory, nil
	default:
		return "", fmt.Errorf("unsupported store url scheme: %q", u.Scheme)
	}
}

// openStore connects the backing store named by the store URL. The pool is nil unless it is postgres.
func openStore(ctx context.Context, env *config.Env) (store.Store, *pgxpool.Pool, error) {
	kind, err := storeKind(env.StoreURL)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("backing store: %s", kind)

	switch kind {
	case storeKindSupabase:
		client, err := supabase.NewClient(env.StoreURL, env.StorePublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("new supabase client: %w", err)
		}
		return client, nil, nil
	case storeKindPostgres:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			ConnString:     env.StoreURL,
			Password:       env.StorePublicKey,
			TracingEnabled: env.HoneycombEnabled,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		pgStore := postgres.New(dbPool)
		if err := pgStore.Migrate(ctx); err != nil {
			dbPool.Close()
			return nil, nil, err
		}
		return pgStore, dbPool, nil
	default:
		// the store key doubles as the PIN for local runs
		log.Warnf("memory store: data is lost on restart")
		return memstore.New(env.SoloEmail, env.StorePublicKey), nil, nil
	}
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	webHandler, err := web.NewHandler(web.NewHandlerParams{
		Gateway:        s.gateway,
		Gate:           s.gate,
		Sessions:       s.authService,
		MetricsManager: s.metricsManager,
		SessionTTL:     s.config.SessionTTL,
		SecureCookies:  s.config.SecureCookies,
	})
	if err != nil {
		return nil, fmt.Errorf("new web handler: %w", err)
	}

	var loginRateLimit mux.MiddlewareFunc
	if s.redisClient != nil {
		loginRateLimit = middleware.RateLimit(
			redis_rate.NewLimiter(s.redisClient),
			s.metricsManager,
			"login",
			s.config.LoginRateLimitAllowedPerMin,
		)
	}
	webHandler.SetupRoutes(r, loginRateLimit)

	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker, s.gateway)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.LimitAndDrainRequest(middleware.DefaultMaxBodyBytes))
	r.Use(middleware.SameOrigin())
	r.Use(authMiddleware.AuthCheck())

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	// the store session is in memory only, sign out so the remote token is revoked
	if s.gateway != nil {
		if err := s.gateway.SignOut(ctx); err != nil {
			log.Warnf("store sign out: %s", err)
		}
		s.gateway.Close()
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
