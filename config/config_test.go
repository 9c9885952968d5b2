package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}

	if cfg.DataDir != "./data" {
		t.Errorf("Expected default data dir ./data, got %s", cfg.DataDir)
	}
	if cfg.StorageBackend != "s3" {
		t.Errorf("Expected default backend s3, got %s", cfg.StorageBackend)
	}
	if cfg.OutputURLTTL != 12*time.Hour {
		t.Errorf("Expected default url ttl 12h, got %v", cfg.OutputURLTTL)
	}
	if !cfg.StagingEnabled {
		t.Error("Expected staging to be enabled by default")
	}
	if cfg.JobMaxAttempts != 1 {
		t.Errorf("Expected 1 attempt by default, got %d", cfg.JobMaxAttempts)
	}
}

func TestConfigDataDirPaths(t *testing.T) {
	customDir := "/tmp/mediaworker-test-data"
	cfg, err := FromLookup(lookupFrom(map[string]string{"WORKER_DATA_DIR": customDir}))
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}

	tests := []struct {
		got  string
		want string
	}{
		{cfg.GetCredentialsDBPath(), filepath.Join(customDir, "credentials.db")},
		{cfg.GetFailuresDBPath(), filepath.Join(customDir, "failures.db")},
		{cfg.GetSuccessDBPath(), filepath.Join(customDir, "success.db")},
		{cfg.GetJobQueueDBPath(), filepath.Join(customDir, "JobQueue.db")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected path %s, got %s", tt.want, tt.got)
		}
	}
}

func TestConfigInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"OUTPUT_URL_TTL": "soon"}, "OUTPUT_URL_TTL"},
		{"bad bool", map[string]string{"STAGING_ENABLED": "maybe"}, "STAGING_ENABLED"},
		{"bad int", map[string]string{"JOB_MAX_ATTEMPTS": "x"}, "JOB_MAX_ATTEMPTS"},
		{"zero attempts", map[string]string{"JOB_MAX_ATTEMPTS": "0"}, "JOB_MAX_ATTEMPTS"},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "ftp"}, "STORAGE_BACKEND"},
		{"negative ttl", map[string]string{"OUTPUT_URL_TTL": "-1h"}, "OUTPUT_URL_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestAccessInfo(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"STORAGE_BACKEND": "sftp",
		"SFTP_HOST":       "files.example.com",
		"SFTP_USER":       "media",
	}))
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}

	info := cfg.AccessInfo()
	if info["host"] != "files.example.com" || info["user"] != "media" || info["port"] != "22" {
		t.Errorf("Unexpected sftp access info %v", info)
	}
	if _, ok := info["password"]; ok {
		t.Error("Empty values should be omitted")
	}
	if _, ok := info["region"]; ok {
		t.Error("S3 settings leaked into sftp access info")
	}
}
