package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certgen.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		noFile  bool
		env     string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:   "missing file gives defaults",
			noFile: true,
			check: func(t *testing.T, cfg Config) {
				t.Helper()
				def := DefaultConfig()
				if cfg.Server != def.Server || cfg.Render != def.Render {
					t.Errorf("cfg = %+v, want defaults", cfg)
				}
			},
		},
		{
			name: "partial override keeps other defaults",
			config: `
[render]
font_ratio = 0.5
text_color = "#1e293b"
`,
			check: func(t *testing.T, cfg Config) {
				t.Helper()
				if cfg.Render.FontRatio != 0.5 || cfg.Render.TextColor != "#1e293b" {
					t.Errorf("Render = %+v", cfg.Render)
				}
				if cfg.Server.Port != 8080 || cfg.Dataset.MaxRows != 10000 {
					t.Errorf("defaults lost: %+v", cfg)
				}
			},
		},
		{
			name:   "PORT env wins",
			config: "[server]\nport = 9000\n",
			env:    "7070",
			check: func(t *testing.T, cfg Config) {
				t.Helper()
				if cfg.Server.Port != 7070 || cfg.Addr() != ":7070" {
					t.Errorf("Port = %d", cfg.Server.Port)
				}
			},
		},
		{name: "bad PORT", env: "http", noFile: true, wantErr: true},
		{name: "malformed toml", config: "[server\n", wantErr: true},
		{name: "font ratio out of range", config: "[render]\nfont_ratio = 1.5\n", wantErr: true},
		{name: "negative ttl", config: "[server]\nsession_ttl_minutes = -1\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", tt.env)
			path := filepath.Join(t.TempDir(), "absent.toml")
			if !tt.noFile {
				path = writeConfig(t, tt.config)
			}
			cfg, err := Load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxUploadBytes() != 10<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
	if cfg.SessionTTL() != 2*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL())
	}
}
