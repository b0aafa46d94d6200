package batchsync

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	hubspotToken   string
	hubspotBaseURL string
	ratePerSecond  float64
	burst          int

	external ExternalClient

	redisAddrs    []string
	redisPassword string
	jobTTLHours   int

	policy     Policy
	maxTargets int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithHubSpot targets HubSpot contacts using a private app token.
func WithHubSpot(token string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hubspotToken = token
	})
}

// WithHubSpotBaseURL overrides the HubSpot API base URL.
func WithHubSpotBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hubspotBaseURL = url
	})
}

// WithRateLimit caps HubSpot requests per second. Default: unlimited.
func WithRateLimit(perSecond float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.ratePerSecond = perSecond
		c.burst = burst
	})
}

// WithClient targets an arbitrary external system instead of HubSpot.
func WithClient(ec ExternalClient) Option {
	return optionFunc(func(c *clientConfig) {
		c.external = ec
	})
}

// WithRedis records every run in Redis so it can be listed and retried by ID.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithJobTTL sets how long recorded runs are kept, in hours. Default: forever.
func WithJobTTL(hours int) Option {
	return optionFunc(func(c *clientConfig) {
		c.jobTTLHours = hours
	})
}

// WithPolicy replaces the default retry policy.
func WithPolicy(p Policy) Option {
	return optionFunc(func(c *clientConfig) {
		c.policy = p
	})
}

// WithMaxTargets sets the maximum number of targets per run.
// Default: 1000.
func WithMaxTargets(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTargets = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
