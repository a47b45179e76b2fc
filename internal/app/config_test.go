package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr: want=:8080 got=%q", cfg.HTTPAddr)
	}
	if cfg.StorageBackend != "local" {
		t.Fatalf("StorageBackend: want=local got=%q", cfg.StorageBackend)
	}
	if cfg.AnalysisBudget != 10*time.Minute {
		t.Fatalf("AnalysisBudget: want=10m got=%v", cfg.AnalysisBudget)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Fatalf("MaxUploadBytes: want=%d got=%d", 50<<20, cfg.MaxUploadBytes)
	}
	if cfg.Research.TopK != 3 {
		t.Fatalf("Research.TopK: want=3 got=%d", cfg.Research.TopK)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")
	t.Setenv("ANALYSIS_BUDGET", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StorageBackend != "gcs_emulator" {
		t.Fatalf("StorageBackend: want=gcs_emulator got=%q", cfg.StorageBackend)
	}
	if cfg.AnalysisBudget != 90*time.Second {
		t.Fatalf("AnalysisBudget: want=90s got=%v", cfg.AnalysisBudget)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins: got=%v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"backend": {"STORAGE_BACKEND", "s3"},
		"budget":  {"ANALYSIS_BUDGET", "0s"},
		"upload":  {"MAX_UPLOAD_BYTES", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("%s=%s: want error", kv[0], kv[1])
			}
		})
	}
}
