package models

// StorageUsage compares bytes in use with the configured quota.
type StorageUsage struct {
	UsedBytes  int64
	QuotaBytes int64
}

// Ratio returns used/quota, or 0 when no quota is configured.
func (u StorageUsage) Ratio() float64 {
	if u.QuotaBytes <= 0 {
		return 0
	}
	return float64(u.UsedBytes) / float64(u.QuotaBytes)
}

// PurgeReport counts what a quota enforcement run removed.
type PurgeReport struct {
	Usage         StorageUsage
	Triggered     bool
	MirrorRecords int64
	Documents     int64
	CacheEntries  int64
}

// Total returns the number of purged rows across all stores.
func (r PurgeReport) Total() int64 {
	return r.MirrorRecords + r.Documents + r.CacheEntries
}
