package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// Seed is the fixture file format
type Seed struct {
	Projects []SeedProject `yaml:"projects" json:"projects"`
}

// SeedProject is one fixture project
type SeedProject struct {
	ID              string              `yaml:"id" json:"id"`
	Name            string              `yaml:"project_name" json:"project_name"`
	URL             string              `yaml:"url,omitempty" json:"url,omitempty"`
	DeploymentURL   string              `yaml:"deployment_url,omitempty" json:"deployment_url,omitempty"`
	IndexingStatus  string              `yaml:"indexing_status,omitempty" json:"indexing_status,omitempty"`
	Vulnerabilities []SeedVulnerability `yaml:"vulnerabilities" json:"vulnerabilities"`
}

// SeedVulnerability is one fixture finding. Location is converted the
// same way as the CSV column when FileKey is empty.
type SeedVulnerability struct {
	ID       string         `yaml:"id" json:"id"`
	CVE      string         `yaml:"cve,omitempty" json:"cve,omitempty"`
	CWE      string         `yaml:"cwe,omitempty" json:"cwe,omitempty"`
	Title    string         `yaml:"vulnerability" json:"vulnerability"`
	Details  string         `yaml:"details,omitempty" json:"details,omitempty"`
	Location string         `yaml:"location,omitempty" json:"location,omitempty"`
	FileKey  string         `yaml:"file_key,omitempty" json:"file_key,omitempty"`
	Severity string         `yaml:"severity" json:"severity"`
	Status   string         `yaml:"status,omitempty" json:"status,omitempty"`
	LastTest *vuln.LastTest `yaml:"last_test,omitempty" json:"last_test,omitempty"`
}

// LoadSeed reads a YAML or JSON (comments allowed) fixture file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	return ParseSeed(data, filepath.Ext(path))
}

// ParseSeed decodes a fixture; ext selects the format (".json", ".jsonc"
// or anything else for YAML).
func ParseSeed(data []byte, ext string) (*Seed, error) {
	var seed Seed
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("parsing seed: %w", err)
		}
		if err := json.Unmarshal(std, &seed); err != nil {
			return nil, fmt.Errorf("parsing seed: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("parsing seed: %w", err)
		}
	}

	for i, p := range seed.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("seed project %d has no project_name", i+1)
		}
	}
	return &seed, nil
}

// ApplySeed upserts every fixture project. Projects and findings without an
// id get a fresh uuid.
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) error {
	for i := range seed.Projects {
		sp := &seed.Projects[i]
		if sp.ID == "" {
			sp.ID = uuid.NewString()
		}

		status := sp.IndexingStatus
		if status == "" {
			status = string(vuln.IndexingCompleted)
		}
		p := &Project{
			ID:             sp.ID,
			Name:           sp.Name,
			URL:            sp.URL,
			DeploymentURL:  sp.DeploymentURL,
			IndexingStatus: status,
		}

		vulns := make([]Vulnerability, 0, len(sp.Vulnerabilities))
		for j, sv := range sp.Vulnerabilities {
			v, err := sv.record(j)
			if err != nil {
				return fmt.Errorf("seed project %s: %w", sp.Name, err)
			}
			vulns = append(vulns, v)
		}

		if err := s.SaveProject(ctx, p, vulns); err != nil {
			return fmt.Errorf("saving seed project %s: %w", sp.Name, err)
		}
		logger.Debug("seeded project %s (%d findings)", sp.Name, len(vulns))
	}
	return nil
}

func (sv SeedVulnerability) record(pos int) (Vulnerability, error) {
	id := sv.ID
	if id == "" {
		id = uuid.NewString()
	}
	fileKey := sv.FileKey
	if fileKey == "" {
		fileKey = FileKey(sv.Location)
	}
	status := sv.Status
	if status == "" {
		status = string(vuln.StatusNotStarted)
	}

	v := Vulnerability{
		ID:       id,
		Position: pos,
		CVE:      optional(sv.CVE),
		CWE:      optional(sv.CWE),
		Title:    sv.Title,
		Details:  sv.Details,
		FileKey:  fileKey,
		Severity: string(vuln.ParseSeverity(sv.Severity)),
		Status:   status,
	}
	if sv.LastTest != nil {
		b, err := json.Marshal(sv.LastTest)
		if err != nil {
			return v, err
		}
		v.LastTest = string(b)
	}
	return v, nil
}
