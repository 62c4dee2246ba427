package dto

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	Uptime           float64 `json:"uptime"`
	Ledger           string  `json:"ledger"`
	Storage          string  `json:"storage"`
	PendingRefreshes int     `json:"pendingRefreshes"`
	Clients          int     `json:"clients"`
}
