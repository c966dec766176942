//go:build integration

package store_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ashureev/lingua-tutor/internal/store"
	"github.com/ashureev/lingua-tutor/internal/store/storetest"
)

var surrealURL string

// TestMain starts a SurrealDB container shared by the integration tests.
func TestMain(m *testing.M) {
	// Ryuk fails to start in some CI sandboxes.
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}
	surrealURL = fmt.Sprintf("ws://%s:%s/rpc", host, port.Port())

	code := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestSurrealStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		// A fresh database per run keeps records isolated.
		repo, err := store.NewSurreal(context.Background(), store.SurrealConfig{
			URL:       surrealURL,
			Namespace: "test",
			Database:  "t_" + uuid.NewString()[:8],
			Username:  "root",
			Password:  "root",
			AuthLevel: "root",
		})
		if err != nil {
			t.Fatalf("NewSurreal: %v", err)
		}
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}
