// Package mock runs a development stand-in for the scanning backend: the
// project, vulnerability and pentest agent endpoints the dashboard calls,
// backed by a gorm store and a simulated agent.
package mock

import (
	"time"

	"github.com/vulndash/vulndash/pkg/vuln"
)

// Config defines the mock backend
type Config struct {
	Name string `yaml:"name" json:"name"`
	Host string `yaml:"host,omitempty" json:"host,omitempty"`
	Port int    `yaml:"port" json:"port"`

	Database DatabaseConfig `yaml:"database" json:"database"`

	// Seed data loaded at startup and, with WatchSeed, on every change
	SeedFile  string `yaml:"seed_file,omitempty" json:"seed_file,omitempty"`
	WatchSeed bool   `yaml:"watch_seed,omitempty" json:"watch_seed,omitempty"`

	Agent   AgentConfig   `yaml:"agent" json:"agent"`
	Latency LatencyConfig `yaml:"latency,omitempty" json:"latency,omitempty"`
	CORS    *CORSConfig   `yaml:"cors,omitempty" json:"cors,omitempty"`
}

// DatabaseConfig selects the store backend
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn" json:"dsn"`
	Debug  bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// AgentConfig paces the simulated indexing and pentest jobs
type AgentConfig struct {
	// StepDelay is the time between two status transitions of a test
	StepDelay time.Duration `yaml:"step_delay" json:"step_delay"`
	// IndexingDelay is the time between two indexing transitions
	IndexingDelay time.Duration `yaml:"indexing_delay" json:"indexing_delay"`
}

// LatencyConfig defines artificial latency
type LatencyConfig struct {
	Min   time.Duration `yaml:"min,omitempty" json:"min,omitempty"`
	Max   time.Duration `yaml:"max,omitempty" json:"max,omitempty"`
	Fixed time.Duration `yaml:"fixed,omitempty" json:"fixed,omitempty"`
}

// CORSConfig defines CORS settings
type CORSConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	AllowOrigins []string `yaml:"allow_origins,omitempty" json:"allow_origins,omitempty"`
}

// DefaultConfig returns an in-memory sqlite backend on :8000
func DefaultConfig() Config {
	return Config{
		Name: "vulndash-mock",
		Port: 8000,
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		Agent: AgentConfig{
			StepDelay:     3 * time.Second,
			IndexingDelay: 10 * time.Second,
		},
		CORS: &CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:8000"},
		},
	}
}

// Stats contains request statistics
type Stats struct {
	Requests       int64            `json:"requests"`
	RequestsByPath map[string]int64 `json:"requests_by_path"`
	AverageLatency time.Duration    `json:"average_latency"`
	Errors         int64            `json:"errors"`
	LastRequest    time.Time        `json:"last_request,omitempty"`
}

// Wire shapes

type projectSummary struct {
	ID   string `json:"_id"`
	Name string `json:"project_name"`
}

type projectResponse struct {
	ID              string                        `json:"_id"`
	Name            string                        `json:"project_name"`
	URL             string                        `json:"url,omitempty"`
	DeploymentURL   string                        `json:"deployment_url,omitempty"`
	IndexingStatus  vuln.IndexingStatus           `json:"indexing_status"`
	Vulnerabilities map[string]vuln.Vulnerability `json:"vulnerabilities"`
}

type createResponse struct {
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
}

type indexingResponse struct {
	Status vuln.IndexingStatus `json:"status"`
}

type testRequest struct {
	ProjectID         string `json:"project_id"`
	VulnerabilityID   string `json:"vulnerability_id"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

type testResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
