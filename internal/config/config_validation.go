// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"net/url"
	"strings"
)

// validate checks that the projected [ClientConfig] satisfies all
// invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or one of the ErrInvalid*
// sentinels otherwise.
func (cfg *ClientConfig) validate() error {
	// both execution contexts must open the same file, so an in-memory
	// database can never be shared
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Storage.Quota.Threshold <= 0 || cfg.Storage.Quota.Threshold > 1 ||
		cfg.Storage.Quota.Bytes < 0 || cfg.Storage.Documents.Keep < 0 {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}
	if u, err := url.Parse(cfg.Adapter.HTTPAddress); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.ProbeInterval <= 0 || cfg.Workers.ClaimLease <= 0 || cfg.Workers.QuotaInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.App.CredentialKey == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.Notify.SessionURL != "" {
		if u, err := url.Parse(cfg.Notify.SessionURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return ErrInvalidNotifyConfigs
		}
	}

	return nil
}
