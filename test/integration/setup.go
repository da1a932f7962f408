package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"food-market/internal/client"
	"food-market/internal/config"
	"food-market/internal/database"
	"food-market/internal/handler"
	"food-market/internal/metrics"
	"food-market/internal/model"
	"food-market/internal/ordernumber"
	"food-market/internal/realtime"
	"food-market/internal/repository"
	"food-market/internal/router"
	"food-market/internal/service"
	"food-market/internal/storedir"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAPIKey       = "test-api-key"
	testTokenSecret  = "integration-secret-0123456789"
	testStoreID      = "downtown-deli"
	otherTestStoreID = "harbour-sushi"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	Config    config.DatabaseConfig
}

// SetupTestDB starts a PostgreSQL container, connects through database.NewPool
// and applies the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
		ConnectTimeout:  15 * time.Second,
	}

	logger := zerolog.Nop()
	pool, err := database.NewPool(ctx, dbConfig, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		Config:    dbConfig,
	}
}

// SeedStores inserts the stores orders are placed against.
func SeedStores(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	repo := repository.NewStoreRepository(pool, zerolog.Nop())
	stores := []model.Store{
		{ID: testStoreID, Name: "Downtown Deli", DeliveryFee: decimal.RequireFromString("2.00"), MinOrderAmount: decimal.Zero},
		{ID: otherTestStoreID, Name: "Harbour Sushi", DeliveryFee: decimal.RequireFromString("3.50"), MinOrderAmount: decimal.RequireFromString("15.00")},
	}

	for i := range stores {
		if err := repo.Upsert(context.Background(), &stores[i]); err != nil {
			t.Fatalf("failed to seed store %s: %v", stores[i].ID, err)
		}
	}
}

// CleanupDB removes all orders.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE order_items, orders"); err != nil {
		t.Logf("failed to clean orders: %v", err)
	}
}

// TestServer is the full API stack served over HTTP.
type TestServer struct {
	*httptest.Server
	Hub    *realtime.Hub
	Client *client.Client
}

// WebsocketURL returns the /ws endpoint of the server.
func (s *TestServer) WebsocketURL() string {
	return "ws" + s.URL[len("http"):] + "/ws"
}

// StartServer wires the API the same way cmd/api does, with in-process fan-out.
func StartServer(t *testing.T, testDB *TestDB) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	m := metrics.NewRegistry(prometheus.NewRegistry())

	stores := storedir.NewPostgresDirectory(repository.NewStoreRepository(testDB.Pool, logger), logger)
	hub := realtime.NewHub(16, m, logger)
	tokens := realtime.NewChannelTokens(testTokenSecret, time.Minute)

	orderService := service.NewOrderService(
		repository.NewOrderRepository(testDB.Pool, logger),
		stores,
		ordernumber.NewGenerator(),
		realtime.NewLocalPublisher(hub),
		m,
		logger,
	)
	channelService := service.NewChannelService(stores, tokens, logger)

	mux := router.New(router.Handlers{
		Orders:   handler.NewOrderHandler(orderService, logger),
		Channels: handler.NewChannelHandler(channelService, logger),
		Health:   handler.NewHealthHandler(testDB.Pool, logger),
		Websocket: realtime.NewServer(hub, tokens, realtime.ServerConfig{
			WriteTimeout:    5 * time.Second,
			PongWait:        time.Minute,
			PingPeriod:      30 * time.Second,
			MaxMessageBytes: 4096,
			TokenRequired:   true,
		}, logger),
		Metrics: m,
	}, testAPIKey, logger)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &TestServer{
		Server: server,
		Hub:    hub,
		Client: client.New(client.Config{BaseURL: server.URL, APIKey: testAPIKey}, logger),
	}
}
