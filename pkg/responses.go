package pkg

// Shared request/response shapes used by both the daemon and the CLI.

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DaemonInfo struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// SyncReport summarises one synchronisation run against Zoho.
type SyncReport struct {
	Job       string  `json:"job"`
	Pages     int     `json:"pages"`
	Processed int     `json:"processed"`
	Inserted  int     `json:"inserted"`
	Updated   int     `json:"updated"`
	Duration  float64 `json:"duration"`
}
