// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container. It is
// populated by merging values from environment variables, command-line
// flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env      : direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds process-level settings such as secrets and the log file.
	App App `envPrefix:"APP_"`

	// Storage holds the local database, document and quota settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds the remote API address and per-request timeout.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Cache holds response cache settings.
	Cache Cache `envPrefix:"CACHE_"`

	// Workers holds background job settings.
	Workers Workers `envPrefix:"WORKERS_"`

	// Notify holds the outcome channel endpoints.
	Notify Notify `envPrefix:"NOTIFY_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level secrets and diagnostics settings.
type App struct {
	// HashKey is the HMAC key used to sign replayed payloads
	// (HashSHA256 header). Optional.
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// CredentialKey is the secret from which the key sealing queued
	// credentials at rest is derived.
	// Env: APP_CREDENTIAL_KEY
	CredentialKey string `env:"CREDENTIAL_KEY"`

	// LogFile is the path the client logs to. Empty means stdout.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`
}

// Storage groups the local persistence settings.
type Storage struct {
	// DB holds the SQLite connection settings.
	DB DB `envPrefix:"DB_"`

	// Documents holds document blob store settings.
	Documents Documents `envPrefix:"DOCUMENTS_"`

	// Quota holds storage quota enforcement settings.
	Quota Quota `envPrefix:"QUOTA_"`

	// CompressThreshold is the payload size in bytes above which mirror
	// records are stored compressed.
	// Env: STORAGE_COMPRESS_THRESHOLD
	CompressThreshold int `env:"COMPRESS_THRESHOLD"`
}

// DB holds connection settings for the local SQLite database shared by the
// foreground session and the background worker.
type DB struct {
	// DSN is the SQLite file path, optionally with driver query options.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Documents holds document blob store settings.
type Documents struct {
	// Keep is the number of most recently downloaded documents retained by
	// cleanup.
	// Env: STORAGE_DOCUMENTS_KEEP
	Keep int `env:"KEEP"`

	// MaxBytes caps a single document download.
	// Env: STORAGE_DOCUMENTS_MAX_BYTES
	MaxBytes int64 `env:"MAX_BYTES"`

	// Bucket selects the S3 document source when non-empty; otherwise
	// documents are fetched over HTTP.
	// Env: STORAGE_DOCUMENTS_BUCKET
	Bucket string `env:"BUCKET"`

	// Region is the S3 region.
	// Env: STORAGE_DOCUMENTS_REGION
	Region string `env:"REGION"`

	// Endpoint overrides the S3 endpoint (S3-compatible stores).
	// Env: STORAGE_DOCUMENTS_ENDPOINT
	Endpoint string `env:"ENDPOINT"`

	// AccessKey and SecretKey are static S3 credentials. When empty the
	// default AWS credential chain is used.
	// Env: STORAGE_DOCUMENTS_ACCESS_KEY, STORAGE_DOCUMENTS_SECRET_KEY
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
}

// Quota holds storage quota enforcement settings.
type Quota struct {
	// Bytes is the storage quota. Zero disables enforcement.
	// Env: STORAGE_QUOTA_BYTES
	Bytes int64 `env:"BYTES"`

	// Threshold is the usage ratio above which cleanup runs (0..1].
	// Env: STORAGE_QUOTA_THRESHOLD
	Threshold float64 `env:"THRESHOLD"`

	// MaxAge is the age after which synced data becomes eligible for purge.
	// Env: STORAGE_QUOTA_MAX_AGE
	MaxAge time.Duration `env:"MAX_AGE"`
}

// Adapter holds remote API settings.
type Adapter struct {
	// HTTPAddress is the base URL of the remote API.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every single remote call, including each replayed
	// action.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// HealthPath is probed to detect reachability.
	// Env: ADAPTER_HEALTH_PATH
	HealthPath string `env:"HEALTH_PATH"`
}

// Cache holds response cache settings.
type Cache struct {
	// MaxAge is the age after which a cached response is a logical miss.
	// Env: CACHE_MAX_AGE
	MaxAge time.Duration `env:"MAX_AGE"`
}

// Workers holds background job settings.
type Workers struct {
	// ProbeInterval is how often reachability is probed.
	// Env: WORKERS_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// ReachabilityFile, when set, is watched for "online"/"offline" written
	// by the host network hook instead of probing over HTTP.
	// Env: WORKERS_REACHABILITY_FILE
	ReachabilityFile string `env:"REACHABILITY_FILE"`

	// ClaimLease is how long a replay pass holds an action exclusively.
	// Env: WORKERS_CLAIM_LEASE
	ClaimLease time.Duration `env:"CLAIM_LEASE"`

	// QuotaInterval is how often the quota manager runs.
	// Env: WORKERS_QUOTA_INTERVAL
	QuotaInterval time.Duration `env:"QUOTA_INTERVAL"`

	// DrainInterval is how often the background worker drains the queue
	// regardless of connectivity transitions.
	// Env: WORKERS_DRAIN_INTERVAL
	DrainInterval time.Duration `env:"DRAIN_INTERVAL"`

	// Background makes the client host the replay worker in-process, on its
	// own store connection, instead of relying on a separate process.
	// Env: WORKERS_BACKGROUND
	Background bool `env:"BACKGROUND"`
}

// Notify holds the outcome channel endpoints.
type Notify struct {
	// ListenAddress is the local address the foreground session listens on
	// for outcomes from the background worker.
	// Env: NOTIFY_LISTEN_ADDRESS
	ListenAddress string `env:"LISTEN_ADDRESS"`

	// SessionURL is the websocket URL the background worker publishes
	// outcomes to.
	// Env: NOTIFY_SESSION_URL
	SessionURL string `env:"SESSION_URL"`
}

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources in the following priority order (last source wins
// for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}
