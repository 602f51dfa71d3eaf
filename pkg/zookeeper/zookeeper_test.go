package zookeeper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupZookeeper(t *testing.T) *zk.Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "zookeeper:3.9",
			ExposedPorts: []string{"2181/tcp"},
			WaitingFor:   wait.ForListeningPort("2181/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start zookeeper container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get host: %v", err)
	}

	port, err := container.MappedPort(ctx, "2181/tcp")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}

	conn, _, err := zk.Connect([]string{host + ":" + port.Port()}, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(conn.Close)

	_, err = conn.Create("/charts", nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		t.Fatalf("failed to create parent: %v", err)
	}
	return conn
}

func TestKey(t *testing.T) {
	tests := map[string]string{
		"zk:///charts/cpu": "/charts/cpu",
		"zk://charts/cpu":  "/charts/cpu",
		"/charts/cpu":      "/charts/cpu",
	}
	for in, want := range tests {
		if got := Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStore_Fetch(t *testing.T) {
	conn := setupZookeeper(t)
	value := []byte(`{"labels":["a"],"datasets":[{"data":[1]}]}`)
	if _, err := conn.Create("/charts/cpu", value, 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	data, err := New(conn).Fetch(context.Background(), "zk://charts/cpu")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != string(value) {
		t.Errorf("expected %q, got %q", value, data)
	}

	_, err = New(conn).Fetch(context.Background(), "zk://charts/missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestStore_FetchWithRoot(t *testing.T) {
	conn := setupZookeeper(t)
	if _, err := conn.Create("/charts/mem", []byte(`{}`), 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	data, err := New(conn, WithRoot("/charts/")).Fetch(context.Background(), "zk://mem")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != `{}` {
		t.Errorf("unexpected data %q", data)
	}
}

func TestTrigger_SignalsOnDataChange(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := conn.Create("/charts/cpu", []byte(`{"v":1}`), 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	ch, err := New(conn).Trigger("zk://charts/cpu").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	select {
	case <-ch:
		t.Fatal("expected existing value not to be signaled")
	case <-time.After(300 * time.Millisecond):
	}

	if _, err := conn.Set("/charts/cpu", []byte(`{"v":2}`), -1); err != nil {
		t.Fatalf("failed to set node: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change signal")
	}
}

func TestTrigger_SignalsOnCreation(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch, err := New(conn).Trigger("zk://charts/delayed").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		if _, err := conn.Create("/charts/delayed", []byte(`{}`), 0, zk.WorldACL(zk.PermAll)); err != nil {
			t.Errorf("failed to create node: %v", err)
		}
	}()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for creation signal")
	}
}

func TestTrigger_HandlesNodeDeletion(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := conn.Create("/charts/deletable", []byte(`{"v":1}`), 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	ch, err := New(conn).Trigger("zk://charts/deletable").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := conn.Delete("/charts/deletable", -1); err != nil {
		t.Fatalf("failed to delete node: %v", err)
	}

	select {
	case <-ch:
		t.Fatal("expected deletion not to be signaled")
	case <-time.After(300 * time.Millisecond):
	}

	if _, err := conn.Create("/charts/deletable", []byte(`{"v":2}`), 0, zk.WorldACL(zk.PermAll)); err != nil {
		t.Fatalf("failed to recreate node: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for recreation signal")
	}
}

func TestTrigger_ClosesOnContextCancel(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := New(conn).Trigger("zk://charts/never-created").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close without a signal")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}
