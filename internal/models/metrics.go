package models

// SystemMetrics is a lightweight aggregate snapshot exposed to the dashboard.
type SystemMetrics struct {
	RequestCount      uint64  `json:"request_count"`
	AvgRequestMs      float64 `json:"avg_request_ms"`
	CacheHitRatio     float64 `json:"cache_hit_ratio"`
	DBQueryCount      uint64  `json:"db_query_count"`
	AvgDBQueryMs      float64 `json:"avg_db_query_ms"`
	GoroutineEstimate int     `json:"goroutines"`
}
