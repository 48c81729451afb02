package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "localmind" {
		t.Errorf("unexpected app name: %s", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected server port: %d", cfg.Server.Port)
	}
	if cfg.Ingest.BatchSize != 5 {
		t.Errorf("unexpected batch size: %d", cfg.Ingest.BatchSize)
	}
	if cfg.Ingest.BatchDelayMs != 100 {
		t.Errorf("unexpected batch delay: %d", cfg.Ingest.BatchDelayMs)
	}
	if cfg.Search.DefaultTopK != 5 || cfg.Search.MaxTopK != 100 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.AI.Embedding.Provider != "dashscope" {
		t.Errorf("unexpected embedding provider: %s", cfg.AI.Embedding.Provider)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: 9000\ndatabase:\n  dbname: testdb\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port override, got %d", cfg.Server.Port)
	}
	if cfg.Database.DBName != "testdb" {
		t.Errorf("expected dbname override, got %s", cfg.Database.DBName)
	}
	// 未覆盖的键保持默认值
	if cfg.Database.Port != 5432 {
		t.Errorf("expected default db port, got %d", cfg.Database.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDSNAndAddr(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dsn := cfg.Database.GetDSN()
	if dsn != "host=localhost port=5432 user=postgres password= dbname=localmind sslmode=disable" {
		t.Errorf("unexpected dsn: %s", dsn)
	}
	if cfg.Server.GetAddr() != "0.0.0.0:8080" {
		t.Errorf("unexpected server addr: %s", cfg.Server.GetAddr())
	}
	if cfg.Redis.GetAddr() != "localhost:6379" {
		t.Errorf("unexpected redis addr: %s", cfg.Redis.GetAddr())
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LOCALMIND_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env override, got %d", cfg.Server.Port)
	}
}
