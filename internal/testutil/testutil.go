package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/imagify/internal/api"
	"github.com/dom/imagify/internal/config"
	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/imagestore"
	"github.com/dom/imagify/internal/logger"
	"github.com/dom/imagify/internal/metrics"
	"github.com/dom/imagify/internal/provider/mock"
	"github.com/dom/imagify/internal/repository"
	repoPostgres "github.com/dom/imagify/internal/repository/postgres"
	"github.com/dom/imagify/internal/service"
	"github.com/dom/imagify/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_imagify"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"generations", "accounts"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// NewTestRedis starts a Redis container and returns a client connected to it.
func NewTestRedis(t *testing.T) *goredis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(context.Background())
	})

	return client
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Environment:        "test",
		CORSAllowedOrigin:  "*",
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 1,
		StartingCredits:    5,
		LedgerBackend:      config.LedgerPostgres,
		Plans:              domain.DefaultPlans(),
		MaxPromptLength:    1000,
		Provider:           config.ProviderMock,
		ProviderTimeout:    5 * time.Second,
		ImageStore:         config.ImageStoreInline,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Provider *mock.Provider
	Hub      *websocket.Hub
	Registry *prometheus.Registry
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by Postgres and a mock
// provider configured with providerOpts.
func NewTestServer(t *testing.T, providerOpts ...mock.Option) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()
	log := logger.Discard()

	repos := repoPostgres.NewRepositories(testDB.DB)
	hub := websocket.NewHub(log)
	go hub.Run()

	registry := prometheus.NewRegistry()
	p := mock.New(providerOpts...)

	services := service.NewServices(repos, service.Dependencies{
		Provider: p,
		Images:   imagestore.NewInline(),
		Notifier: hub,
		Metrics:  metrics.NewCollector(registry),
		Logger:   log,
	}, cfg)
	router := api.NewRouter(services, hub, registry, cfg, log)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Provider: p,
		Hub:      hub,
		Registry: registry,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}
