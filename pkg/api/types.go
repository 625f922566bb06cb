package api

import "github.com/ACascarino/pat/pkg/sss"

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Problem describes a record the decoder had to abandon. The rest of the
// stream still decodes, so problems accompany rows instead of failing the
// request.
type Problem struct {
	Record int    `json:"record"`
	Error  string `json:"error"`
}

// DecodeResponse is the payload returned by the decode endpoint.
type DecodeResponse struct {
	Version  int        `json:"version"`
	Rows     []*sss.Row `json:"rows"`
	Problems []Problem  `json:"problems,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string // empty disables authentication
	// Options configures measurement interpretation for uploaded streams.
	Options sss.DecodeOptions
}
