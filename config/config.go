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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT            = "5004"
	DEFAULT_MONITORING_PORT = "5005"

	DEFAULT_WASTE_SYNC_SCHEDULE      = "@every 5m"
	DEFAULT_QUARANTINE_SCAN_SCHEDULE = "@every 2m"
	DEFAULT_HEDGING_SYNC_SCHEDULE    = "@every 1h"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"AGRION_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"AGRION_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"AGRION_SERVER_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"AGRION_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"AGRION_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"AGRION_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"AGRION_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"AGRION_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"AGRION_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	SyncQueue         string `json:"sync_queue" envconfig:"AGRION_QUEUE_SYNC"`
	ProcessingQueue   string `json:"processing_queue" envconfig:"AGRION_QUEUE_PROCESSING"`
	AuditQueue        string `json:"audit_queue" envconfig:"AGRION_QUEUE_AUDIT"`
	WebhookQueue      string `json:"webhook_queue" envconfig:"AGRION_QUEUE_WEBHOOK"`
	WorkerConcurrency int    `json:"worker_concurrency" envconfig:"AGRION_QUEUE_WORKER_CONCURRENCY"`
	MonitoringPort    string `json:"monitoring_port" envconfig:"AGRION_QUEUE_MONITORING_PORT"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"AGRION_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url" envconfig:"AGRION_WEBHOOK_URL"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

// CreditPolicy configures the sustainability bonus applied on every credit award.
type CreditPolicy struct {
	SustainabilityBonus float64 `json:"sustainability_bonus" envconfig:"AGRION_CREDIT_SUSTAINABILITY_BONUS"`
	SustainabilityCap   float64 `json:"sustainability_cap" envconfig:"AGRION_CREDIT_SUSTAINABILITY_CAP"`
	BaselineIndex       float64 `json:"baseline_index" envconfig:"AGRION_CREDIT_BASELINE_INDEX"`
}

// TransformerPolicy configures waste-to-energy conversion.
type TransformerPolicy struct {
	YieldRates       map[string]float64 `json:"yield_rates" envconfig:"AGRION_TRANSFORMER_YIELD_RATES"`
	DefaultYieldRate float64            `json:"default_yield_rate" envconfig:"AGRION_TRANSFORMER_DEFAULT_YIELD_RATE"`
	Efficiency       float64            `json:"efficiency" envconfig:"AGRION_TRANSFORMER_EFFICIENCY"`
	CreditsPerKwh    float64            `json:"credits_per_kwh" envconfig:"AGRION_TRANSFORMER_CREDITS_PER_KWH"`
}

type OutbreakPolicy struct {
	DefaultDirectionDeg       float64 `json:"default_direction_deg" envconfig:"AGRION_OUTBREAK_DEFAULT_DIRECTION_DEG"`
	DefaultSpeedKmh           float64 `json:"default_speed_kmh" envconfig:"AGRION_OUTBREAK_DEFAULT_SPEED_KMH"`
	Confidence                float64 `json:"confidence" envconfig:"AGRION_OUTBREAK_CONFIDENCE"`
	EmergencyConcentrationPpm float64 `json:"emergency_concentration_ppm" envconfig:"AGRION_OUTBREAK_EMERGENCY_CONCENTRATION_PPM"`
}

type MarketPolicy struct {
	ReadinessThreshold       float64 `json:"readiness_threshold" envconfig:"AGRION_MARKET_READINESS_THRESHOLD"`
	VolatilityMin            float64 `json:"volatility_min" envconfig:"AGRION_MARKET_VOLATILITY_MIN"`
	VolatilityMax            float64 `json:"volatility_max" envconfig:"AGRION_MARKET_VOLATILITY_MAX"`
	MinHedgeRatio            float64 `json:"min_hedge_ratio" envconfig:"AGRION_MARKET_MIN_HEDGE_RATIO"`
	DefaultYieldKg           float64 `json:"default_yield_kg" envconfig:"AGRION_MARKET_DEFAULT_YIELD_KG"`
	DefaultDeliveryWindowDay int     `json:"default_delivery_window_days" envconfig:"AGRION_MARKET_DEFAULT_DELIVERY_WINDOW_DAYS"`
	DefaultCropType          string  `json:"default_crop_type" envconfig:"AGRION_MARKET_DEFAULT_CROP_TYPE"`
	BasePricePerKg           float64 `json:"base_price_per_kg" envconfig:"AGRION_MARKET_BASE_PRICE_PER_KG"`
	PriceSpread              float64 `json:"price_spread" envconfig:"AGRION_MARKET_PRICE_SPREAD"`
	PriceFeedUrl             string  `json:"price_feed_url" envconfig:"AGRION_MARKET_PRICE_FEED_URL"`
	PriceCacheTTLSec         int     `json:"price_cache_ttl_sec" envconfig:"AGRION_MARKET_PRICE_CACHE_TTL_SEC"`
	OracleSeed               int64   `json:"oracle_seed" envconfig:"AGRION_MARKET_ORACLE_SEED"`
}

type OrchestratorConfig struct {
	BatchSize              int    `json:"batch_size" envconfig:"AGRION_ORCHESTRATOR_BATCH_SIZE"`
	MaxBatchDurationSec    int    `json:"max_batch_duration_sec" envconfig:"AGRION_ORCHESTRATOR_MAX_BATCH_DURATION_SEC"`
	AuditDispatchTimeout   int    `json:"audit_dispatch_timeout_sec" envconfig:"AGRION_ORCHESTRATOR_AUDIT_DISPATCH_TIMEOUT_SEC"`
	WasteSyncSchedule      string `json:"waste_sync_schedule" envconfig:"AGRION_ORCHESTRATOR_WASTE_SYNC_SCHEDULE"`
	QuarantineScanSchedule string `json:"quarantine_scan_schedule" envconfig:"AGRION_ORCHESTRATOR_QUARANTINE_SCAN_SCHEDULE"`
	HedgingSyncSchedule    string `json:"hedging_sync_schedule" envconfig:"AGRION_ORCHESTRATOR_HEDGING_SYNC_SCHEDULE"`
}

type Configuration struct {
	ProjectName     string             `json:"project_name" envconfig:"AGRION_PROJECT_NAME"`
	EnableTelemetry bool               `json:"enable_telemetry" envconfig:"AGRION_ENABLE_TELEMETRY"`
	Server          ServerConfig       `json:"server"`
	DataSource      DataSourceConfig   `json:"data_source"`
	Redis           RedisConfig        `json:"redis"`
	RateLimit       RateLimitConfig    `json:"rate_limit"`
	Queue           QueueConfig        `json:"queue"`
	Notification    Notification       `json:"notification"`
	Credit          CreditPolicy       `json:"credit"`
	Transformer     TransformerPolicy  `json:"transformer"`
	Outbreak        OutbreakPolicy     `json:"outbreak"`
	Market          MarketPolicy       `json:"market"`
	Orchestrator    OrchestratorConfig `json:"orchestrator"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("agrion", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called agrion.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Agrion Engine"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	// Rate limiting stays disabled unless RPS or burst is set.
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	cnf.applyDefaults()
	return cnf.validatePolicies()
}

// applyDefaults fills every unset policy value. It never touches required connection settings.
func (cnf *Configuration) applyDefaults() {
	setFloat(&cnf.Credit.SustainabilityBonus, 0.5)
	setFloat(&cnf.Credit.SustainabilityCap, 100.0)
	setFloat(&cnf.Credit.BaselineIndex, 50.0)

	if len(cnf.Transformer.YieldRates) == 0 {
		cnf.Transformer.YieldRates = map[string]float64{
			"BIO_MASS": 0.5,
			"MANURE":   0.8,
		}
	}
	setFloat(&cnf.Transformer.DefaultYieldRate, 0.1)
	setFloat(&cnf.Transformer.Efficiency, 0.85)
	setFloat(&cnf.Transformer.CreditsPerKwh, 2.0)

	setFloat(&cnf.Outbreak.DefaultDirectionDeg, 180.0)
	setFloat(&cnf.Outbreak.DefaultSpeedKmh, 0.5)
	setFloat(&cnf.Outbreak.Confidence, 0.92)
	setFloat(&cnf.Outbreak.EmergencyConcentrationPpm, 200.0)

	setFloat(&cnf.Market.ReadinessThreshold, 0.6)
	setFloat(&cnf.Market.VolatilityMin, 0.2)
	setFloat(&cnf.Market.VolatilityMax, 0.8)
	setFloat(&cnf.Market.MinHedgeRatio, 0.2)
	setFloat(&cnf.Market.DefaultYieldKg, 1000.0)
	setFloat(&cnf.Market.BasePricePerKg, 25.0)
	setFloat(&cnf.Market.PriceSpread, 5.0)
	setInt(&cnf.Market.DefaultDeliveryWindowDay, 90)
	setInt(&cnf.Market.PriceCacheTTLSec, 300)
	if cnf.Market.DefaultCropType == "" {
		cnf.Market.DefaultCropType = "Grains"
	}

	setInt(&cnf.Orchestrator.BatchSize, 500)
	setInt(&cnf.Orchestrator.MaxBatchDurationSec, 240)
	setInt(&cnf.Orchestrator.AuditDispatchTimeout, 10)
	if cnf.Orchestrator.WasteSyncSchedule == "" {
		cnf.Orchestrator.WasteSyncSchedule = DEFAULT_WASTE_SYNC_SCHEDULE
	}
	if cnf.Orchestrator.QuarantineScanSchedule == "" {
		cnf.Orchestrator.QuarantineScanSchedule = DEFAULT_QUARANTINE_SCAN_SCHEDULE
	}
	if cnf.Orchestrator.HedgingSyncSchedule == "" {
		cnf.Orchestrator.HedgingSyncSchedule = DEFAULT_HEDGING_SYNC_SCHEDULE
	}

	if cnf.Queue.SyncQueue == "" {
		cnf.Queue.SyncQueue = "agrion_sync"
	}
	if cnf.Queue.ProcessingQueue == "" {
		cnf.Queue.ProcessingQueue = "agrion_processing"
	}
	if cnf.Queue.AuditQueue == "" {
		cnf.Queue.AuditQueue = "agrion_audit"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "agrion_webhooks"
	}
	setInt(&cnf.Queue.WorkerConcurrency, 10)
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}
}

func (cnf *Configuration) validatePolicies() error {
	if cnf.Market.VolatilityMin > cnf.Market.VolatilityMax {
		return errors.New("market volatility_min must not exceed volatility_max")
	}
	if cnf.Credit.SustainabilityCap < 0 {
		return errors.New("credit sustainability_cap must not be negative")
	}
	for wasteType, rate := range cnf.Transformer.YieldRates {
		if rate < 0 {
			return errors.New("transformer yield rate for " + wasteType + " must not be negative")
		}
	}
	return nil
}

func setFloat(field *float64, def float64) {
	if *field == 0 {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

// MaxBatchDuration bounds a single orchestrator batch.
func (o OrchestratorConfig) MaxBatchDuration() time.Duration {
	return time.Duration(o.MaxBatchDurationSec) * time.Second
}

func (o OrchestratorConfig) AuditDispatchDuration() time.Duration {
	return time.Duration(o.AuditDispatchTimeout) * time.Second
}

func (m MarketPolicy) DefaultDeliveryWindow() time.Duration {
	return time.Duration(m.DefaultDeliveryWindowDay) * 24 * time.Hour
}

func (m MarketPolicy) PriceCacheTTL() time.Duration {
	return time.Duration(m.PriceCacheTTLSec) * time.Second
}

// MockConfig sets a mock configuration for testing purposes. Unset policy values get their defaults.
func MockConfig(mockConfig *Configuration) {
	mockConfig.applyDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
