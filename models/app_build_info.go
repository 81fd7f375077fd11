// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

const buildInfoUnknown = "N/A"

// AppBuildInfo carries the build metadata injected by linker flags. It is
// served by the session API so the embedding application can tell which
// sync core it talks to.
type AppBuildInfo struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Commit  string `json:"commit"`
}

// NewAppBuildInfo fills missing values with "N/A".
func NewAppBuildInfo(version, date, commit string) AppBuildInfo {
	return AppBuildInfo{
		Version: orUnknown(version),
		Date:    orUnknown(date),
		Commit:  orUnknown(commit),
	}
}

func (a AppBuildInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", a.Version, a.Commit, a.Date)
}

func orUnknown(v string) string {
	if v == "" {
		return buildInfoUnknown
	}
	return v
}
