package config

import (
	"os"
	"path/filepath"
	"testing"
)

func testConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvAPIKey, "")
	return dir
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	dir := testConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.History.Backend != BackendFile {
		t.Errorf("History.Backend = %q, want %q", cfg.History.Backend, BackendFile)
	}
	if want := filepath.Join(dir, "history.json"); cfg.History.Path != want {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, want)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := testConfigDir(t)
	content := []byte("api_key: from-file\ntimeout_seconds: 30\nhistory:\n  backend: sqlite\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "from-file")
	}
	if cfg.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d, want 30", cfg.TimeoutSec)
	}
	if cfg.History.Backend != BackendSQLite {
		t.Errorf("History.Backend = %q, want %q", cfg.History.Backend, BackendSQLite)
	}
	if want := filepath.Join(dir, "history.db"); cfg.History.Path != want {
		t.Errorf("History.Path = %q, want sqlite default %q", cfg.History.Path, want)
	}
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	dir := testConfigDir(t)
	content := []byte("api_key: from-file\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(EnvAPIKey, "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env override", cfg.APIKey)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := testConfigDir(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{BackendFile, false},
		{BackendSQLite, false},
		{BackendMemory, false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &Config{History: History{Backend: tt.backend}}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	testConfigDir(t)

	cfg := &Config{
		APIKey:  "secret",
		History: History{Backend: BackendSQLite, Path: "/tmp/h.db"},
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.APIKey != "secret" {
		t.Errorf("APIKey = %q, want %q", loaded.APIKey, "secret")
	}
	if loaded.History.Path != "/tmp/h.db" {
		t.Errorf("History.Path = %q, want %q", loaded.History.Path, "/tmp/h.db")
	}
}
