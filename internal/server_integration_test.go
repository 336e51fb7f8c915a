//go:build integration_test || all_tests

package internal

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/2beens/whole2swole/internal/config"
	"github.com/2beens/whole2swole/internal/db"
	"github.com/2beens/whole2swole/internal/forms"
	"github.com/2beens/whole2swole/internal/middleware"
	"github.com/2beens/whole2swole/internal/store/postgres"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	itServerHost  = "127.0.0.1"
	itServerPort  = 9000
	itMetricsPort = "9001"
)

var itServerEndpoint = fmt.Sprintf("http://%s:%d", itServerHost, itServerPort)

type ServiceTestSuite struct {
	suite.Suite

	dockerPool *dockertest.Pool
	server     *Server
	httpClient *http.Client
	cancel     context.CancelFunc
	teardown   []func()
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupSuite() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	var err error
	s.dockerPool, err = dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, s.dockerPool.Client.Ping())

	redisPort, err := s.redisSetup()
	if err != nil {
		s.cleanup()
		t.Fatalf("failed to setup redis: %s", err)
	}

	dsn, err := s.postgresSetup(ctx)
	if err != nil {
		s.cleanup()
		t.Fatalf("failed to setup postgres: %s", err)
	}

	cfg := &config.Config{
		Environment:                 "development",
		Host:                        itServerHost,
		Port:                        itServerPort,
		RedisHost:                   "localhost",
		RedisPort:                   redisPort,
		SessionTTL:                  time.Hour,
		LoginRateLimitAllowedPerMin: 100,
		PrometheusMetricsHost:       itServerHost,
		PrometheusMetricsPort:       itMetricsPort,
	}
	env := &config.Env{
		StoreURL:       dsn,
		StorePublicKey: "unused",
		SoloUsername:   "whole2swole",
		SoloEmail:      testEmail,
	}

	s.server, err = NewServer(ctx, NewServerParams{
		Config:      cfg,
		Env:         env,
		VersionInfo: "test-version-info",
	})
	if err != nil {
		s.cleanup()
		t.Fatalf("new server: %s", err)
	}
	s.server.Serve(cfg.Host, cfg.Port)

	require.NoError(t, s.dockerPool.Retry(func() error {
		resp, err := http.Get(itServerEndpoint + "/healthz")
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		return nil
	}))

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	s.httpClient = &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		// redirects are asserted, not followed
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *ServiceTestSuite) TearDownSuite() {
	s.cleanup()
}

func (s *ServiceTestSuite) cleanup() {
	if s.server != nil && s.server.httpServer != nil {
		s.server.GracefulShutdown()
	}
	if s.cancel != nil {
		s.cancel()
	}
	for _, teardown := range s.teardown {
		teardown()
	}
}

func (s *ServiceTestSuite) redisSetup() (string, error) {
	redisResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		return "", fmt.Errorf("run redis: %w", err)
	}

	s.teardown = append(s.teardown, func() {
		if err := redisResource.Close(); err != nil {
			fmt.Printf("redis teardown: %s\n", err)
		}
	})

	return redisResource.GetPort("6379/tcp"), nil
}

// postgresSetup starts postgres and creates the solo account, returning the store URL.
func (s *ServiceTestSuite) postgresSetup(ctx context.Context) (string, error) {
	pgResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=whole2swole",
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return "", fmt.Errorf("dockerpool run postgres: %w", err)
	}

	s.teardown = append(s.teardown, func() {
		if err := pgResource.Close(); err != nil {
			fmt.Printf("postgres teardown: %s\n", err)
		}
	})

	dsn := fmt.Sprintf(
		"postgres://postgres@localhost:%s/whole2swole?sslmode=disable",
		pgResource.GetPort("5432/tcp"),
	)

	if err := s.dockerPool.Retry(func() error {
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return sqlDB.Ping()
	}); err != nil {
		return "", fmt.Errorf("connect to db: %w", err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{ConnString: dsn, MaxConns: 1})
	if err != nil {
		return "", err
	}
	defer dbPool.Close()

	pgStore := postgres.New(dbPool)
	if err := pgStore.Migrate(ctx); err != nil {
		return "", err
	}
	if _, err := pgStore.UpsertAccount(ctx, testEmail, testPIN); err != nil {
		return "", err
	}

	return dsn, nil
}

func (s *ServiceTestSuite) get(path string) (*http.Response, string) {
	resp, err := s.httpClient.Get(itServerEndpoint + path)
	require.NoError(s.T(), err)
	return resp, readBody(s.T(), resp)
}

func (s *ServiceTestSuite) post(path string, form url.Values) (*http.Response, string) {
	resp, err := s.httpClient.PostForm(itServerEndpoint+path, form)
	require.NoError(s.T(), err)
	return resp, readBody(s.T(), resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (s *ServiceTestSuite) TestSignInLogAndSignOut() {
	t := s.T()

	resp, _ := s.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, middleware.LoginPath, resp.Header.Get("Location"))

	resp, body := s.post(middleware.LoginPath, url.Values{forms.FieldPIN: {"0000"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid login credentials")

	resp, _ = s.post(middleware.LoginPath, url.Values{forms.FieldPIN: {testPIN}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, body = s.post("/log", url.Values{
		forms.FieldDate:           {"2024-06-03"},
		forms.FieldTitle:          {"Leg Day"},
		forms.FieldDuration:       {"45"},
		forms.FieldNotes:          {""},
		forms.FieldExerciseName:   {"Squat"},
		forms.FieldExerciseSets:   {"5"},
		forms.FieldExerciseReps:   {"5"},
		forms.FieldExerciseWeight: {"100"},
		forms.FieldExerciseNotes:  {""},
		"action":                  {"save"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, forms.MessageWorkoutSaved)

	resp, body = s.post("/stats", url.Values{
		forms.FieldDate:   {"2024-06-03"},
		forms.FieldWeight: {"82.5"},
		"action":          {"save"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, forms.MessageEntrySaved)

	resp, body = s.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<div class="kpiValue" id="total-workouts">1</div>`)
	assert.Contains(t, body, `<div class="kpiValue" id="latest-workout">Leg Day</div>`)
	assert.Contains(t, body, `<div class="kpiValue" id="latest-weight">82.5</div>`)

	resp, body = s.get("/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Leg Day")
	assert.Contains(t, body, "45 min")

	resp, _ = s.post("/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, middleware.LoginPath, resp.Header.Get("Location"))

	resp, _ = s.get("/history")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func (s *ServiceTestSuite) TestMetricsServer() {
	t := s.T()

	resp, err := http.Get(fmt.Sprintf("http://%s:%s/metrics", itServerHost, itMetricsPort))
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, body, "backend_main_life_signal 1")
	assert.True(t, strings.Contains(body, "pgxpool_"), "db pool collector registered")
}
