/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package agrion

import (
	"context"
	"embed"
	"time"

	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/internal/cache"
	"github.com/agrion/agrion/internal/notification"
	redis_db "github.com/agrion/agrion/internal/redis-db"
	"github.com/redis/go-redis/v9"
)

// Agrion is the autonomous response engine. It owns the credit ledger, the waste
// transformation pipeline, the outbreak containment engine and the hedging scheduler.
type Agrion struct {
	datasource database.IDataSource
	queue      *Queue
	redis      redis.UniversalClient
	cfg        *config.Configuration
	auditSink  AuditSink
	targeting  TargetingPolicy
	volatility VolatilitySource
	prices     PriceSource
	now        func() time.Time
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// Option customizes the collaborators used by an Agrion instance.
type Option func(*Agrion)

func WithAuditSink(sink AuditSink) Option {
	return func(a *Agrion) { a.auditSink = sink }
}

func WithTargetingPolicy(policy TargetingPolicy) Option {
	return func(a *Agrion) { a.targeting = policy }
}

func WithVolatilitySource(source VolatilitySource) Option {
	return func(a *Agrion) { a.volatility = source }
}

func WithPriceSource(source PriceSource) Option {
	return func(a *Agrion) { a.prices = source }
}

// WithRedis sets the client used for single-flight task locks and the price cache.
func WithRedis(client redis.UniversalClient) Option {
	return func(a *Agrion) { a.redis = client }
}

func WithQueue(queue *Queue) Option {
	return func(a *Agrion) { a.queue = queue }
}

// WithClock replaces time.Now for contract deadlines.
func WithClock(now func() time.Time) Option {
	return func(a *Agrion) { a.now = now }
}

// NewAgrion builds the engine over db. Collaborators that are not supplied as options are
// derived from the loaded configuration: redis and the task queue are only connected when a
// redis address is configured.
func NewAgrion(db database.IDataSource, opts ...Option) (*Agrion, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	a := &Agrion{
		datasource: db,
		cfg:        cfg,
		targeting:  DiseaseNameTargeting{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.redis == nil && cfg.Redis.Dns != "" {
		client, err := redis_db.NewRedisClient([]string{cfg.Redis.Dns}, cfg.Redis.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		a.redis = client.Client()
	}

	if a.queue == nil && cfg.Redis.Dns != "" {
		q, err := NewQueue(cfg)
		if err != nil {
			return nil, err
		}
		a.queue = q
	}

	oracle := NewRandomOracle(cfg.Market)
	if a.volatility == nil {
		a.volatility = oracle
	}
	if a.prices == nil {
		a.prices = oracle
		if cfg.Market.PriceFeedUrl != "" && a.redis != nil {
			a.prices = NewHTTPPriceSource(cfg.Market.PriceFeedUrl, cache.NewRedisCache(a.redis), cfg.Market.PriceCacheTTL(), oracle)
		}
	}

	if a.auditSink == nil {
		if a.queue != nil {
			a.auditSink = NewQueueSink(a.queue)
		} else {
			a.auditSink = LogSink{}
		}
	}

	if a.queue != nil {
		notification.RegisterWebhookSender(func(event string, payload interface{}) error {
			return a.queue.EnqueueWebhook(context.Background(), NewWebhook{Event: event, Payload: payload})
		})
	}

	return a, nil
}

// Config returns the configuration the engine was built with.
func (a *Agrion) Config() *config.Configuration {
	return a.cfg
}

// Close releases the task queue connections.
func (a *Agrion) Close() error {
	if a.queue != nil {
		return a.queue.Close()
	}
	return nil
}
