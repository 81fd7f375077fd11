package config

import (
	"fmt"
	"time"
)

// Defaults applied to zero-valued settings during projection.
const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultHealthPath        = "/api/health"
	DefaultCacheMaxAge       = 24 * time.Hour
	DefaultCompressThreshold = 4 << 10
	DefaultDocumentsKeep     = 50
	DefaultDocumentMaxBytes  = 50 << 20
	DefaultQuotaThreshold    = 0.80
	DefaultQuotaMaxAge       = 90 * 24 * time.Hour
	DefaultQuotaInterval     = time.Hour
	DefaultProbeInterval     = 15 * time.Second
	DefaultClaimLease        = 2 * time.Minute
	DefaultDrainInterval     = 15 * time.Minute
	DefaultListenAddress     = "localhost:8765"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// HashKey is the HMAC key used to sign replayed payloads.
	HashKey string
	// CredentialKey is the secret the credential sealing key is derived from.
	CredentialKey string
	// LogFile is the log destination; empty means stdout.
	LogFile string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the base URL of the remote API.
	HTTPAddress string
	// RequestTimeout bounds every outbound call, including each replayed action.
	RequestTimeout time.Duration
	// HealthPath is the reachability probe path.
	HealthPath string
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string shared by both execution contexts.
	DSN string
}

// ClientDocuments holds document blob store settings.
type ClientDocuments struct {
	Keep      int
	MaxBytes  int64
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ClientQuota holds quota enforcement settings.
type ClientQuota struct {
	Bytes     int64
	Threshold float64
	MaxAge    time.Duration
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
	// Documents holds document store settings.
	Documents ClientDocuments
	// Quota holds quota settings.
	Quota ClientQuota
	// CompressThreshold is the mirror payload size above which payloads are
	// compressed.
	CompressThreshold int
}

// ClientCache holds response cache settings.
type ClientCache struct {
	MaxAge time.Duration
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	ProbeInterval    time.Duration
	ReachabilityFile string
	ClaimLease       time.Duration
	QuotaInterval    time.Duration
	DrainInterval    time.Duration
	// Background runs the replay worker inside the client process.
	Background bool
}

// ClientNotify holds outcome channel endpoints.
type ClientNotify struct {
	// ListenAddress is where the foreground session accepts outcomes.
	ListenAddress string
	// SessionURL is where the background worker publishes outcomes.
	SessionURL string
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig]. Both the foreground session and the background replay
// worker run from it.
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains client transport addresses and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Cache contains response cache settings.
	Cache ClientCache
	// Workers contains background job settings.
	Workers ClientWorkers
	// Notify contains outcome channel settings.
	Notify ClientNotify
}

// GetClientConfig builds and validates the foreground session config from
// the merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, applies defaults and validates the result.
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := newClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

// GetWorkerConfig builds and validates the background replay worker config.
// The worker does not listen for outcomes, so it requires a session URL
// instead of a listen address; when none is configured it is derived from
// the listen address.
func GetWorkerConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	workerCfg := newClientConfig(cfg)
	if workerCfg.Notify.SessionURL == "" {
		workerCfg.Notify.SessionURL = "ws://" + workerCfg.Notify.ListenAddress + "/outcomes"
	}

	return workerCfg, workerCfg.validate()
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	clientCfg := &ClientConfig{
		App: ClientApp{
			HashKey:       cfg.App.HashKey,
			CredentialKey: cfg.App.CredentialKey,
			LogFile:       cfg.App.LogFile,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: orDuration(cfg.Adapter.RequestTimeout, DefaultRequestTimeout),
			HealthPath:     orString(cfg.Adapter.HealthPath, DefaultHealthPath),
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
			Documents: ClientDocuments{
				Keep:      cfg.Storage.Documents.Keep,
				MaxBytes:  cfg.Storage.Documents.MaxBytes,
				Bucket:    cfg.Storage.Documents.Bucket,
				Region:    cfg.Storage.Documents.Region,
				Endpoint:  cfg.Storage.Documents.Endpoint,
				AccessKey: cfg.Storage.Documents.AccessKey,
				SecretKey: cfg.Storage.Documents.SecretKey,
			},
			Quota: ClientQuota{
				Bytes:     cfg.Storage.Quota.Bytes,
				Threshold: cfg.Storage.Quota.Threshold,
				MaxAge:    orDuration(cfg.Storage.Quota.MaxAge, DefaultQuotaMaxAge),
			},
			CompressThreshold: cfg.Storage.CompressThreshold,
		},
		Cache: ClientCache{
			MaxAge: orDuration(cfg.Cache.MaxAge, DefaultCacheMaxAge),
		},
		Workers: ClientWorkers{
			ProbeInterval:    orDuration(cfg.Workers.ProbeInterval, DefaultProbeInterval),
			ReachabilityFile: cfg.Workers.ReachabilityFile,
			ClaimLease:       orDuration(cfg.Workers.ClaimLease, DefaultClaimLease),
			QuotaInterval:    orDuration(cfg.Workers.QuotaInterval, DefaultQuotaInterval),
			DrainInterval:    orDuration(cfg.Workers.DrainInterval, DefaultDrainInterval),
			Background:       cfg.Workers.Background,
		},
		Notify: ClientNotify{
			ListenAddress: orString(cfg.Notify.ListenAddress, DefaultListenAddress),
			SessionURL:    cfg.Notify.SessionURL,
		},
	}

	if clientCfg.Storage.Documents.Keep == 0 {
		clientCfg.Storage.Documents.Keep = DefaultDocumentsKeep
	}
	if clientCfg.Storage.Documents.MaxBytes == 0 {
		clientCfg.Storage.Documents.MaxBytes = DefaultDocumentMaxBytes
	}
	if clientCfg.Storage.Quota.Threshold == 0 {
		clientCfg.Storage.Quota.Threshold = DefaultQuotaThreshold
	}
	if clientCfg.Storage.CompressThreshold == 0 {
		clientCfg.Storage.CompressThreshold = DefaultCompressThreshold
	}

	return clientCfg
}

func orDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
