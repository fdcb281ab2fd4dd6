package dto

// Version is reported by /healthz and `gangactl version`.
const Version = "v0.3.0"

// HealthResponse describes the payload returned by standard /healthz endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
