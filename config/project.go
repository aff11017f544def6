// Package config loads the project file (lake.yaml), the credentials file
// (dwh.cfg) and turns them into an aws.Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is looked up from the current directory upwards.
const ProjectFileName = "lake.yaml"

// Project names the resources a data lake is provisioned into.
// Loaded from lake.yaml if present; every field has a default.
type Project struct {
	Region string `yaml:"region"`
	// Bucket holds the lake data and backs every catalog table.
	Bucket string `yaml:"bucket"`
	// ResultsBucket receives Athena query results.
	ResultsBucket string `yaml:"resultsBucket"`
	Workgroup     string `yaml:"workgroup"`
	Database      string `yaml:"database"`
	// UploadDir is the local tree uploaded into Bucket.
	UploadDir string `yaml:"uploadDir"`
	// Credentials is the path of the INI credentials file.
	Credentials string `yaml:"credentials"`
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string `yaml:"endpoint,omitempty"`
	// TablesFile replaces the built-in catalog layout with a YAML definition.
	TablesFile string `yaml:"tablesFile,omitempty"`
	// LedgerTable enables recording runs in this DynamoDB table.
	LedgerTable string `yaml:"ledgerTable,omitempty"`

	// path is the file the project was loaded from, empty for defaults.
	path string
}

// DefaultProject returns the settings used when no lake.yaml exists.
func DefaultProject() Project {
	return Project{
		Region:        "us-west-2",
		Bucket:        "udacity-data-lake-project-rohit1998",
		ResultsBucket: "my-athena-query-results-rohit1998",
		Workgroup:     "primary",
		Database:      "data_lake_project",
		UploadDir:     "S3_Data",
		Credentials:   "dwh.cfg",
	}
}

// Path is the file the project was loaded from, or "" for defaults.
func (p Project) Path() string {
	return p.path
}

// Resolve makes a path from the project file relative to its directory.
func (p Project) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.path == "" {
		return path
	}
	return filepath.Join(filepath.Dir(p.path), path)
}

func (p Project) Validate() error {
	switch {
	case p.Region == "":
		return fmt.Errorf("region is required")
	case p.Bucket == "":
		return fmt.Errorf("bucket is required")
	case p.ResultsBucket == "":
		return fmt.Errorf("resultsBucket is required")
	case p.Bucket == p.ResultsBucket:
		return fmt.Errorf("bucket and resultsBucket must differ")
	case p.Workgroup == "":
		return fmt.Errorf("workgroup is required")
	case p.Database == "":
		return fmt.Errorf("database is required")
	}
	return nil
}

// LoadProject reads path, or the nearest lake.yaml at or above the working
// directory when path is empty. Fields missing from the file keep their
// defaults. Without a file the defaults are returned as is.
func LoadProject(path string) (Project, error) {
	p := DefaultProject()
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return p, fmt.Errorf("locate project file: %w", err)
		}
		found, ok := projectFileAbove(wd)
		if !ok {
			return p, nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read project file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse project file %s: %w", path, err)
	}
	p.path = path
	return p, nil
}

// projectFileAbove returns the lake.yaml closest to dir, checking dir and
// then each of its parents. Directories named lake.yaml are skipped.
func projectFileAbove(dir string) (string, bool) {
	for d := filepath.Clean(dir); ; {
		candidate := filepath.Join(d, ProjectFileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
		up := filepath.Dir(d)
		if up == d {
			return "", false
		}
		d = up
	}
}
