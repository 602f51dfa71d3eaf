package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })

	if err := client.ConfigSet(ctx, "notify-keyspace-events", "KEA").Err(); err != nil {
		t.Fatalf("failed to enable keyspace notifications: %v", err)
	}
	return client
}

func TestKey(t *testing.T) {
	if got := Key("redis://charts:cpu"); got != "charts:cpu" {
		t.Errorf("expected charts:cpu, got %q", got)
	}
	if got := Key("charts:cpu"); got != "charts:cpu" {
		t.Errorf("expected bare key unchanged, got %q", got)
	}
}

func TestStore_Fetch(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	value := `{"labels":["a"],"datasets":[{"data":[1]}]}`
	if err := client.Set(ctx, "charts:test", value, 0).Err(); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	data, err := New(client).Fetch(ctx, "redis://charts:test")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != value {
		t.Errorf("expected %q, got %q", value, data)
	}
}

func TestStore_Fetch_Missing(t *testing.T) {
	client := setupRedis(t)

	_, err := New(client).Fetch(context.Background(), "redis://charts:missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestTrigger_SignalsOnSet(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := New(client).Trigger("redis://charts:test").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := client.Set(ctx, "charts:test", `{"v":2}`, 0).Err(); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change signal")
	}
}

func TestTrigger_ClosesOnContextCancel(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := New(client).Trigger("charts:test").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}
