package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("port = %q, want 8000", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected development env by default")
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool sizes = %d/%d, want 20/5", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.SweepAt != "18:00" {
		t.Errorf("sweep at = %q, want 18:00", cfg.SweepAt)
	}
	if cfg.ReassignWindowMinutes != 15 {
		t.Errorf("reassign window = %d, want 15", cfg.ReassignWindowMinutes)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinic")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("REASSIGN_WINDOW_MINUTES", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("expected production env")
	}
	if cfg.ReassignWindowMinutes != 30 {
		t.Errorf("reassign window = %d, want 30", cfg.ReassignWindowMinutes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"dev without signing key", Config{Env: "development"}, false},
		{"production without signing key", Config{Env: "production"}, true},
		{"production with signing key", Config{Env: "production", AuthSigningKey: "secret"}, false},
		{"negative reassign window", Config{Env: "development", ReassignWindowMinutes: -1}, true},
		{"bad sweep time", Config{Env: "development", SweepAt: "1800"}, true},
		{"good sweep time", Config{Env: "development", SweepAt: "07:30"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
