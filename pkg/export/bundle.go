package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"time"

	"github.com/vulndash/vulndash/pkg/vuln"
)

// BundleVersion is the report bundle format version
const BundleVersion = "1.0"

// Manifest describes the bundle content
type Manifest struct {
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	ProjectID string         `json:"project_id,omitempty"`
	Project   string         `json:"project"`
	Counts    map[string]int `json:"counts"`
	Files     []string       `json:"files"`
}

// bundle members in write order
var bundleFiles = []struct {
	name  string
	write func(io.Writer, *vuln.Project) error
}{
	{"findings.json", WriteJSON},
	{"findings.csv", func(w io.Writer, p *vuln.Project) error { return WriteCSV(w, p.Sorted()) }},
	{"findings.xlsx", func(w io.Writer, p *vuln.Project) error { return WriteExcel(w, p.Name, p.Sorted()) }},
}

// WriteBundle writes a gzip compressed tar holding the findings as JSON, CSV
// and xlsx plus a manifest
func WriteBundle(w io.Writer, p *vuln.Project) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	now := time.Now()
	manifest := Manifest{
		Version:   BundleVersion,
		CreatedAt: now,
		ProjectID: p.ID,
		Project:   p.Name,
		Counts:    map[string]int{},
	}
	for _, v := range p.Vulnerabilities {
		manifest.Counts[string(v.Severity)]++
	}

	for _, f := range bundleFiles {
		var buf bytes.Buffer
		if err := f.write(&buf, p); err != nil {
			return err
		}
		if err := addBytesToTar(tw, buf.Bytes(), f.name, now); err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, f.name)
	}

	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := addBytesToTar(tw, manifestBytes, "manifest.json", now); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}

func addBytesToTar(tw *tar.Writer, data []byte, tarName string, modTime time.Time) error {
	header := &tar.Header{
		Name:    tarName,
		Size:    int64(len(data)),
		Mode:    0644,
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
