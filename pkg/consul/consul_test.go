package consul

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/testcontainers/testcontainers-go"
	tcconsul "github.com/testcontainers/testcontainers-go/modules/consul"
)

func setupConsul(t *testing.T) *api.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := tcconsul.Run(ctx, "consul:1.15")
	if err != nil {
		t.Fatalf("failed to start consul container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.ApiEndpoint(ctx)
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	client, err := api.NewClient(&api.Config{Address: endpoint})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestKey(t *testing.T) {
	if got := Key("consul://charts/cpu"); got != "charts/cpu" {
		t.Errorf("expected charts/cpu, got %q", got)
	}
}

func TestStore_Fetch(t *testing.T) {
	client := setupConsul(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	value := []byte(`{"labels":["a"],"datasets":[{"data":[1]}]}`)
	if _, err := client.KV().Put(&api.KVPair{Key: "charts/cpu", Value: value}, nil); err != nil {
		t.Fatalf("failed to put value: %v", err)
	}

	data, err := New(client).Fetch(ctx, "consul://charts/cpu")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != string(value) {
		t.Errorf("expected %q, got %q", value, data)
	}

	_, err = New(client).Fetch(ctx, "consul://charts/missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestTrigger_SignalsOnChange(t *testing.T) {
	client := setupConsul(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := client.KV().Put(&api.KVPair{Key: "charts/cpu", Value: []byte(`{}`)}, nil); err != nil {
		t.Fatalf("failed to put initial value: %v", err)
	}

	ch, err := New(client).Trigger("consul://charts/cpu").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if _, err := client.KV().Put(&api.KVPair{Key: "charts/cpu", Value: []byte(`{"v":2}`)}, nil); err != nil {
		t.Fatalf("failed to update value: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for change signal")
	}
}

func TestTrigger_ClosesOnContextCancel(t *testing.T) {
	client := setupConsul(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := New(client).Trigger("charts/cpu").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}
