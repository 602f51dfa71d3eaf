// Package backends opens the clients of the key-value backends enabled in
// configuration and exposes them as dashboard backends keyed by scheme.
package backends

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/go-zookeeper/zk"
	consulapi "github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	goredis "github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/zoobzio/chartz/internal/config"
	"github.com/zoobzio/chartz/internal/dashboard"
	"github.com/zoobzio/chartz/internal/logging"
	consulstore "github.com/zoobzio/chartz/pkg/consul"
	etcdstore "github.com/zoobzio/chartz/pkg/etcd"
	"github.com/zoobzio/chartz/pkg/file"
	firestorestore "github.com/zoobzio/chartz/pkg/firestore"
	k8sstore "github.com/zoobzio/chartz/pkg/kubernetes"
	natsstore "github.com/zoobzio/chartz/pkg/nats"
	pgstore "github.com/zoobzio/chartz/pkg/postgres"
	redisstore "github.com/zoobzio/chartz/pkg/redis"
	zkstore "github.com/zoobzio/chartz/pkg/zookeeper"
)

// Set holds the open backends and the clients behind them.
type Set struct {
	backends map[string]dashboard.Backend
	closers  []func()
	log      *logging.Logger
}

type opener func(ctx context.Context, cfg config.BackendsConfig, s *Set) error

// Open connects every enabled backend. On failure, backends opened so far
// are closed and the error names the failing one.
func Open(ctx context.Context, cfg config.BackendsConfig, log *logging.Logger) (*Set, error) {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Set{
		backends: map[string]dashboard.Backend{file.Scheme: file.New(cfg.FileRoot)},
		log:      log,
	}

	openers := []struct {
		name    string
		enabled bool
		open    opener
	}{
		{"redis", cfg.RedisAddr != "", openRedis},
		{"postgres", cfg.PostgresURL != "", openPostgres},
		{"etcd", len(cfg.EtcdEndpoints) > 0, openEtcd},
		{"consul", cfg.ConsulAddr != "", openConsul},
		{"nats", cfg.NATSURL != "", openNATS},
		{"zookeeper", len(cfg.ZookeeperServers) > 0, openZookeeper},
		{"firestore", cfg.FirestoreProject != "", openFirestore},
		{"kubernetes", cfg.Kubernetes, openKubernetes},
	}
	for _, o := range openers {
		if !o.enabled {
			continue
		}
		if err := o.open(ctx, cfg, s); err != nil {
			s.Close()
			return nil, fmt.Errorf("backend %s: %w", o.name, err)
		}
	}

	log.Info("backends ready", zap.Strings("schemes", s.Schemes()))
	return s, nil
}

func (s *Set) add(scheme string, b dashboard.Backend, closer func()) {
	s.backends[scheme] = b
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
}

// Backends returns the backends keyed by endpoint scheme.
func (s *Set) Backends() map[string]dashboard.Backend {
	out := make(map[string]dashboard.Backend, len(s.backends))
	for k, v := range s.backends {
		out[k] = v
	}
	return out
}

// Schemes returns the served schemes in sorted order.
func (s *Set) Schemes() []string {
	schemes := make([]string, 0, len(s.backends))
	for k := range s.backends {
		schemes = append(schemes, k)
	}
	sort.Strings(schemes)
	return schemes
}

// Close releases every client, most recently opened first.
func (s *Set) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func openRedis(ctx context.Context, cfg config.BackendsConfig, s *Set) error {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}
	s.add(redisstore.Scheme, redisstore.New(client, redisstore.WithDB(cfg.RedisDB)), func() {
		client.Close()
	})
	return nil
}

func openPostgres(ctx context.Context, cfg config.BackendsConfig, s *Set) error {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return err
	}
	store := pgstore.New(pool,
		pgstore.WithTable(cfg.PostgresTable),
		pgstore.WithChannel(cfg.PostgresChannel),
	)
	s.add(pgstore.Scheme, store, pool.Close)
	return nil
}

func openEtcd(_ context.Context, cfg config.BackendsConfig, s *Set) error {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.EtcdEndpoints,
		DialTimeout: cfg.DialTimeout,
		Logger:      s.log.Named("etcd"),
	})
	if err != nil {
		return err
	}
	s.add(etcdstore.Scheme, etcdstore.New(client), func() {
		client.Close()
	})
	return nil
}

func openConsul(_ context.Context, cfg config.BackendsConfig, s *Set) error {
	apiCfg := consulapi.DefaultConfig()
	apiCfg.Address = cfg.ConsulAddr
	client, err := consulapi.NewClient(apiCfg)
	if err != nil {
		return err
	}
	s.add(consulstore.Scheme, consulstore.New(client), nil)
	return nil
}

func openNATS(ctx context.Context, cfg config.BackendsConfig, s *Set) error {
	nc, err := nats.Connect(cfg.NATSURL, nats.Timeout(cfg.DialTimeout), nats.Name("chartd"))
	if err != nil {
		return err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return err
	}
	kv, err := js.KeyValue(ctx, cfg.NATSBucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: cfg.NATSBucket})
	}
	if err != nil {
		nc.Close()
		return err
	}
	s.add(natsstore.Scheme, natsstore.New(kv), nc.Close)
	return nil
}

// zkLogger routes ZooKeeper client logs to zap.
type zkLogger struct {
	log *zap.SugaredLogger
}

func (l zkLogger) Printf(format string, args ...any) {
	l.log.Debugf(format, args...)
}

func openZookeeper(_ context.Context, cfg config.BackendsConfig, s *Set) error {
	conn, _, err := zk.Connect(cfg.ZookeeperServers, cfg.DialTimeout,
		zk.WithLogger(zkLogger{log: s.log.Named("zookeeper").Sugar()}),
	)
	if err != nil {
		return err
	}
	s.add(zkstore.Scheme, zkstore.New(conn, zkstore.WithRoot(cfg.ZookeeperRoot)), conn.Close)
	return nil
}

func openFirestore(ctx context.Context, cfg config.BackendsConfig, s *Set) error {
	client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
	if err != nil {
		return err
	}
	store := firestorestore.New(client, firestorestore.WithField(cfg.FirestoreField))
	s.add(firestorestore.Scheme, store, func() {
		client.Close()
	})
	return nil
}

// ParseResourceType maps "configmap" or "secret" to a Kubernetes resource type.
func ParseResourceType(name string) (k8sstore.ResourceType, error) {
	switch strings.ToLower(name) {
	case "", "configmap":
		return k8sstore.ConfigMap, nil
	case "secret":
		return k8sstore.Secret, nil
	default:
		return 0, fmt.Errorf("unknown kubernetes resource %q", name)
	}
}

func openKubernetes(_ context.Context, cfg config.BackendsConfig, s *Set) error {
	rt, err := ParseResourceType(cfg.KubernetesResource)
	if err != nil {
		return err
	}

	var restCfg *rest.Config
	if cfg.Kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	} else {
		restCfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return err
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return err
	}
	s.add(k8sstore.Scheme, k8sstore.New(client, k8sstore.WithResourceType(rt)), nil)
	return nil
}
