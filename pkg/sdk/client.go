package batchsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/db"
	dbRedis "github.com/westmoney/batchsync/internal/db/redis"
	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	domjob "github.com/westmoney/batchsync/internal/domain/job"
	jobrepo "github.com/westmoney/batchsync/internal/repository/job"
	"github.com/westmoney/batchsync/internal/transport/hubspot"
	syncuc "github.com/westmoney/batchsync/internal/usecase/batchsync"
	healthuc "github.com/westmoney/batchsync/internal/usecase/health"
	jobuc "github.com/westmoney/batchsync/internal/usecase/job"
)

const defaultReadinessTimeout = 10 * time.Second

// ExternalClient applies one field change to one external record.
// Return nil on success, and Retryable or Terminal errors to classify failures.
type ExternalClient interface {
	Apply(ctx context.Context, targetID, field, value string) error
}

// Internal interfaces for substitution in tests.
type runner interface {
	Run(ctx context.Context, req batch.Request) (batch.Result, error)
}

type jobUseCase interface {
	Submit(ctx context.Context, targets []string, f field.Field, v field.Value) (domjob.Job, error)
	Get(ctx context.Context, id string) (domjob.Job, error)
	List(ctx context.Context, cursor string, limit int) ([]domjob.Job, string, error)
	RetryFailed(ctx context.Context, id string) (domjob.Job, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the batchsync SDK entry point.
type Client struct {
	store      db.Store
	engine     runner
	jobs       jobUseCase // nil without WithRedis
	healthSvc  healthUseCase
	maxTargets int
	newID      func() string
	obs        *observer
}

// New creates a Client. Either WithHubSpot or WithClient is required.
// The provided context is used for the initial readiness check when WithRedis is set.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		policy:     DefaultPolicy(),
		maxTargets: batch.DefaultMaxTargets,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if err := cfg.policy.internal().Validate(); err != nil {
		return nil, fmt.Errorf("batchsync: %w", err)
	}

	ext, checker, err := createExternal(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.redisAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.redisAddrs, Password: cfg.redisPassword})
		if err != nil {
			return nil, fmt.Errorf("batchsync: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("batchsync: database not ready: %w", err)
		}
		store = s
	}

	return wireClient(store, ext, checker, cfg, obs), nil
}

func createExternal(cfg *clientConfig) (syncuc.Client, healthuc.ExternalChecker, error) {
	switch {
	case cfg.external != nil:
		return &externalAdapter{inner: cfg.external}, nil, nil
	case cfg.hubspotToken != "":
		hs := hubspot.New(hubspot.Config{
			BaseURL:       cfg.hubspotBaseURL,
			Token:         cfg.hubspotToken,
			RatePerSecond: cfg.ratePerSecond,
			Burst:         cfg.burst,
		})
		return hs, hs, nil
	default:
		return nil, nil, errors.New("batchsync: external system required (use WithHubSpot or WithClient)")
	}
}

func wireClient(
	store db.Store, ext syncuc.Client, checker healthuc.ExternalChecker, cfg *clientConfig, obs *observer,
) *Client {
	engine := syncuc.New(ext, cfg.policy.internal(), zap.NewNop())

	c := &Client{
		store:      store,
		engine:     engine,
		maxTargets: cfg.maxTargets,
		newID:      func() string { return ulid.Make().String() },
		obs:        obs,
	}

	// Pass untyped nil, not a nil *Store, so health skips the database check.
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
		ttl := time.Duration(cfg.jobTTLHours) * time.Hour
		c.jobs = jobuc.New(engine, jobrepo.New(store, ttl), zap.NewNop()).
			WithMaxTargets(cfg.maxTargets)
	}
	c.healthSvc = healthuc.New(pinger, checker, "hubspot")
	return c
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Run applies value to field on every target. The error is non-nil only for
// malformed input, in which case no external call was made; every other
// outcome is accounted for per target in the Result.
func (c *Client) Run(ctx context.Context, targets []string, fieldName, value string) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("run", start, err) }()

	f, v, err := parseChange(fieldName, value)
	if err != nil {
		return Result{}, err
	}

	if c.jobs != nil {
		j, err := c.jobs.Submit(ctx, targets, f, v)
		if err != nil {
			return Result{}, fmt.Errorf("run: %w", err)
		}
		return resultFromJob(j), nil
	}
	return c.runLocal(ctx, targets, f, v, "")
}

// Retry re-runs the failed targets of prev as a new batch whose ParentID is prev.BatchID.
func (c *Client) Retry(ctx context.Context, prev Result) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retry", start, err) }()

	if len(prev.Failed) == 0 {
		return Result{}, fmt.Errorf("batch %s: %w", prev.BatchID, ErrNothingToRetry)
	}
	if c.jobs != nil && prev.BatchID != "" {
		j, err := c.jobs.RetryFailed(ctx, prev.BatchID)
		if err != nil {
			return Result{}, fmt.Errorf("retry: %w", err)
		}
		return resultFromJob(j), nil
	}

	f, v, err := parseChange(prev.Field, prev.Value)
	if err != nil {
		return Result{}, err
	}
	return c.runLocal(ctx, prev.FailedIDs(), f, v, prev.BatchID)
}

func (c *Client) runLocal(
	ctx context.Context, targets []string, f field.Field, v field.Value, parentID string,
) (Result, error) {
	req, err := batch.NewRequest(targets, f, v, c.maxTargets)
	if err != nil {
		return Result{}, err
	}
	res, err := c.engine.Run(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("run: %w", err)
	}
	return resultFromDomain(c.newID(), parentID, res), nil
}

// Jobs returns the recorded-run service. Its methods fail with
// ErrNotConfigured unless the client was created WithRedis.
func (c *Client) Jobs() *JobService {
	return &JobService{svc: c.jobs, obs: c.obs}
}

func parseChange(fieldName, value string) (field.Field, field.Value, error) {
	f, err := field.Parse(fieldName)
	if err != nil {
		return "", "", err
	}
	v, err := field.ParseValue(f, value)
	if err != nil {
		return "", "", err
	}
	return f, v, nil
}

// externalAdapter wraps the public ExternalClient to satisfy the engine's Client.
type externalAdapter struct {
	inner ExternalClient
}

func (a *externalAdapter) Apply(ctx context.Context, targetID string, f field.Field, v field.Value) error {
	return a.inner.Apply(ctx, targetID, f.String(), v.String())
}
