package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] with JSON tags and
// string-friendly durations.
type StructuredJSONConfig struct {
	App struct {
		HashKey       string `json:"hash_key"`
		CredentialKey string `json:"credential_key"`
		LogFile       string `json:"log_file"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`

		Documents struct {
			Keep      int    `json:"keep"`
			MaxBytes  int64  `json:"max_bytes"`
			Bucket    string `json:"bucket"`
			Region    string `json:"region"`
			Endpoint  string `json:"endpoint"`
			AccessKey string `json:"access_key"`
			SecretKey string `json:"secret_key"`
		} `json:"documents,omitempty"`

		Quota struct {
			Bytes     int64    `json:"bytes"`
			Threshold float64  `json:"threshold"`
			MaxAge    Duration `json:"max_age"`
		} `json:"quota,omitempty"`

		CompressThreshold int `json:"compress_threshold"`
	} `json:"storage,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
		HealthPath     string   `json:"health_path"`
	} `json:"adapter,omitempty"`

	Cache struct {
		MaxAge Duration `json:"max_age"`
	} `json:"cache,omitempty"`

	Workers struct {
		ProbeInterval    Duration `json:"probe_interval"`
		ReachabilityFile string   `json:"reachability_file"`
		ClaimLease       Duration `json:"claim_lease"`
		QuotaInterval    Duration `json:"quota_interval"`
		DrainInterval    Duration `json:"drain_interval"`
		Background       bool     `json:"background"`
	} `json:"workers,omitempty"`

	Notify struct {
		ListenAddress string `json:"listen_address"`
		SessionURL    string `json:"session_url"`
	} `json:"notify,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			HashKey:       jsonCfg.App.HashKey,
			CredentialKey: jsonCfg.App.CredentialKey,
			LogFile:       jsonCfg.App.LogFile,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
			Documents: Documents{
				Keep:      jsonCfg.Storage.Documents.Keep,
				MaxBytes:  jsonCfg.Storage.Documents.MaxBytes,
				Bucket:    jsonCfg.Storage.Documents.Bucket,
				Region:    jsonCfg.Storage.Documents.Region,
				Endpoint:  jsonCfg.Storage.Documents.Endpoint,
				AccessKey: jsonCfg.Storage.Documents.AccessKey,
				SecretKey: jsonCfg.Storage.Documents.SecretKey,
			},
			Quota: Quota{
				Bytes:     jsonCfg.Storage.Quota.Bytes,
				Threshold: jsonCfg.Storage.Quota.Threshold,
				MaxAge:    time.Duration(jsonCfg.Storage.Quota.MaxAge),
			},
			CompressThreshold: jsonCfg.Storage.CompressThreshold,
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
			HealthPath:     jsonCfg.Adapter.HealthPath,
		},
		Cache: Cache{
			MaxAge: time.Duration(jsonCfg.Cache.MaxAge),
		},
		Workers: Workers{
			ProbeInterval:    time.Duration(jsonCfg.Workers.ProbeInterval),
			ReachabilityFile: jsonCfg.Workers.ReachabilityFile,
			ClaimLease:       time.Duration(jsonCfg.Workers.ClaimLease),
			QuotaInterval:    time.Duration(jsonCfg.Workers.QuotaInterval),
			DrainInterval:    time.Duration(jsonCfg.Workers.DrainInterval),
			Background:       jsonCfg.Workers.Background,
		},
		Notify: Notify{
			ListenAddress: jsonCfg.Notify.ListenAddress,
			SessionURL:    jsonCfg.Notify.SessionURL,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
