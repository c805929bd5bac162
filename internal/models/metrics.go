package models

import "time"

// SystemMetrics is a lightweight aggregate snapshot exposed on the admin API.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	PunchesCommitted         uint64    `json:"punches_committed"`
	PunchesRejected          uint64    `json:"punches_rejected"`
	AdjustmentsResolved      uint64    `json:"adjustments_resolved"`
	VerificationChecks       uint64    `json:"verification_checks"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
