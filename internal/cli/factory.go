package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/crosscall"
	"github.com/aretw0/crosscall/internal/config"
	adapter "github.com/aretw0/crosscall/pkg/adapters/http"
	"github.com/aretw0/crosscall/pkg/adapters/memory"
	"github.com/aretw0/crosscall/pkg/adapters/redis"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
	"github.com/aretw0/crosscall/pkg/persistence/middleware"
	"github.com/aretw0/crosscall/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// InitSigner signs the init transaction the factory sends.
const InitSigner domain.AccountID = "crosscall.cli"

// Options tweak what Build wires on top of the configuration.
type Options struct {
	Debug bool
	// Greeter replaces the in-process greeting service, e.g. with a remote one.
	Greeter ports.Contract
}

// Runtime is a ready deployment plus everything the commands serve next to it.
type Runtime struct {
	Deployment *crosscall.Deployment
	Metrics    *prometheus.Registry
	Streams    *adapter.StreamManager
	Logger     *slog.Logger

	closers []io.Closer
}

// Close releases the store connection, if any.
func (r *Runtime) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build wires a deployment from cfg and initializes the orchestrator.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{
		Metrics: prometheus.NewRegistry(),
		Streams: adapter.NewStreamManager(logger),
		Logger:  logger,
	}

	// 1. Storage for pending outcomes
	store, locker, err := rt.buildStore(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	// 2. Observability
	metrics, err := host.NewMetrics(rt.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	hooks := adapter.StreamHooks(rt.Streams)
	if opts.Debug {
		hooks = hooks.Merge(createDebugHooks(logger))
	}

	hostOpts := []host.Option{
		host.WithStore(store),
		host.WithMetrics(metrics),
		host.WithGasSchedule(host.GasSchedule{
			Base:        cfg.Gas.Base,
			PerByte:     cfg.Gas.PerByte,
			OutcomeRead: cfg.Gas.OutcomeRead,
		}),
	}
	if locker != nil {
		hostOpts = append(hostOpts, host.WithLocker(locker))
	}

	deployOpts := []crosscall.Option{
		crosscall.WithAccounts(cfg.Self, cfg.HelloAccount),
		crosscall.WithLogger(logger),
		crosscall.WithLifecycleHooks(hooks),
		crosscall.WithHostOptions(hostOpts...),
		crosscall.WithBudgets(cfg.Gas.Light, cfg.Gas.Heavy),
		crosscall.WithPolicy(cfg.Policy()),
	}
	if opts.Greeter != nil {
		deployOpts = append(deployOpts, crosscall.WithGreeter(opts.Greeter))
	}

	// 3. Deploy and initialize
	rt.Deployment = crosscall.New(deployOpts...)
	if err := rt.Deployment.Init(ctx, InitSigner); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing %s: %w", cfg.Self, err)
	}

	logger.Debug("deployment ready",
		"self", cfg.Self,
		"hello_account", cfg.HelloAccount,
		"store", cfg.Store.Driver,
		"aggregation", cfg.Policy().String(),
	)
	return rt, nil
}

func (r *Runtime) buildStore(cfg config.Config) (ports.SlotStore, ports.DistributedLocker, error) {
	store, locker, err := r.buildBackend(cfg)
	if err != nil {
		return nil, nil, err
	}

	active, fallback, err := cfg.Store.Encryption.Keys()
	if err != nil || active == nil {
		return store, locker, err
	}
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
	})
	if err != nil {
		return nil, nil, err
	}
	return middleware.Chain(store, mw), locker, nil
}

func (r *Runtime) buildBackend(cfg config.Config) (ports.SlotStore, ports.DistributedLocker, error) {
	if cfg.Store.Driver != config.DriverRedis {
		return memory.NewStore(), nil, nil
	}

	ttl, err := cfg.Store.Redis.Expiry()
	if err != nil {
		return nil, nil, err
	}
	rc := cfg.Store.Redis
	store := redis.New(rc.Addr, rc.Password, rc.DB,
		redis.WithPrefix(rc.Prefix),
		redis.WithTTL(ttl),
	)
	r.closers = append(r.closers, store)

	if !rc.Lock {
		return store, nil, nil
	}
	return store, redis.NewLocker(store.Client(), rc.Prefix), nil
}
