package mock

import (
	"encoding/json"
	"time"

	"github.com/vulndash/vulndash/pkg/logger"
	"github.com/vulndash/vulndash/pkg/vuln"
)

// Project is a stored project
type Project struct {
	ID             string `gorm:"primaryKey;size:36"`
	Name           string `gorm:"size:255"`
	URL            string `gorm:"size:500"`
	DeploymentURL  string `gorm:"size:500"`
	IndexingStatus string `gorm:"size:20;default:not_started"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Vulnerabilities []Vulnerability `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// Vulnerability is a stored finding. LastTest and Extra hold JSON.
type Vulnerability struct {
	ID        string  `gorm:"primaryKey;size:36"`
	ProjectID string  `gorm:"size:36;index"`
	Position  int     // row order of the imported CSV
	CVE       *string `gorm:"size:50"`
	CWE       *string `gorm:"size:50"`
	Title     string  `gorm:"size:500"`
	Details   string  `gorm:"type:text"`
	FileKey   string  `gorm:"size:500"`
	Severity  string  `gorm:"size:20;index"`
	Status    string  `gorm:"size:20;default:not_started"`
	LastTest  string  `gorm:"type:text"`
	Extra     string  `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is one pentest agent run
type Task struct {
	ID              string `gorm:"primaryKey;size:36"`
	ProjectID       string `gorm:"size:36;index"`
	VulnerabilityID string `gorm:"size:36;index"`
	Status          string `gorm:"size:20"`
	Result          string `gorm:"type:text"`
	Error           string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// API converts the record to the wire model
func (v Vulnerability) API() vuln.Vulnerability {
	out := vuln.Vulnerability{
		ID:       v.ID,
		CVE:      v.CVE,
		CWE:      v.CWE,
		Title:    v.Title,
		Details:  v.Details,
		FileKey:  v.FileKey,
		Severity: vuln.Severity(v.Severity),
		Status:   vuln.Status(v.Status),
	}
	if v.LastTest != "" {
		var lt vuln.LastTest
		if err := json.Unmarshal([]byte(v.LastTest), &lt); err != nil {
			logger.Warn("vulnerability %s has unreadable last test: %v", v.ID, err)
		} else {
			out.LastTest = &lt
		}
	}
	return out
}

// taskView is the wire shape of GET /api/agent/pentest/status/:id
type taskView struct {
	TaskID          string           `json:"task_id"`
	ProjectID       string           `json:"project_id"`
	VulnerabilityID string           `json:"vulnerability_id"`
	Status          string           `json:"status"`
	Result          *vuln.TestResult `json:"result,omitempty"`
	Error           string           `json:"error,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (t Task) view() taskView {
	out := taskView{
		TaskID:          t.ID,
		ProjectID:       t.ProjectID,
		VulnerabilityID: t.VulnerabilityID,
		Status:          t.Status,
		Error:           t.Error,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.Result != "" {
		var r vuln.TestResult
		if err := json.Unmarshal([]byte(t.Result), &r); err == nil {
			out.Result = &r
		}
	}
	return out
}
