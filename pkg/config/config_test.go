package config

import (
	"os"
	"path/filepath"
	"testing"

	aerrors "attnviz/pkg/errors"
	"attnviz/pkg/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Text != "The quick brown fox" {
		t.Errorf("unexpected default text %q", cfg.Text)
	}
	if cfg.Hyperparameters != model.DefaultHyperparameters() {
		t.Errorf("unexpected default hyperparameters %+v", cfg.Hyperparameters)
	}
	if cfg.Server.Enabled {
		t.Error("Expected server to be disabled by default")
	}
	if cfg.Server.Address() != "localhost:8081" {
		t.Errorf("unexpected address %q", cfg.Server.Address())
	}
	if cfg.Render.PreviewColumns != 4 {
		t.Errorf("Expected 4 preview columns, got %d", cfg.Render.PreviewColumns)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attnviz.yaml")
	content := `
text: "hello attention world"
hyperparameters:
  model_dimension: 128
  max_seq_length: 2
seed: 7
server:
  enabled: true
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Text != "hello attention world" || cfg.Seed != 7 {
		t.Errorf("unexpected text/seed: %q, %d", cfg.Text, cfg.Seed)
	}
	hp := cfg.Hyperparameters
	if hp.ModelDimension != 128 || hp.MaxSeqLength != 2 || hp.NumHeads != 8 || hp.DropoutRate != 0.1 {
		t.Errorf("unexpected hyperparameters %+v", hp)
	}
	if !cfg.Server.Enabled || cfg.Server.Address() != "localhost:9000" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Shell.Color != ColorAuto {
		t.Errorf("Expected default color mode, got %q", cfg.Shell.Color)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", filepath.Join(dir, "nope.yaml"), aerrors.ErrConfigNotFound},
		{"bad yaml", write("bad.yaml", "text: [unclosed"), aerrors.ErrConfigParseFailed},
		{"bad dropout", write("dropout.yaml", "hyperparameters:\n  dropout_rate: 1.5\n"), aerrors.ErrConfigInvalid},
		{"bad port", write("port.yaml", "server:\n  port: 70000\n"), aerrors.ErrConfigInvalid},
		{"bad color", write("color.yaml", "shell:\n  color: sometimes\n"), aerrors.ErrConfigInvalid},
		{"bad preview", write("preview.yaml", "render:\n  preview_columns: 0\n"), aerrors.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if !aerrors.IsCode(err, tt.code) {
				t.Errorf("Expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil || cfg == nil {
		t.Fatalf("LoadOrDefault(\"\") = %v, %v", cfg, err)
	}

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil || cfg.Text != Default().Text {
		t.Errorf("Expected defaults for missing file, got %+v, %v", cfg, err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "attnviz.yaml")

	cfg := Default()
	cfg.Text = "a b c"
	cfg.Hyperparameters.NumHeads = 4
	cfg.Shell.Color = ColorNever
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Text != "a b c" || loaded.Hyperparameters.NumHeads != 4 || loaded.Shell.Color != ColorNever {
		t.Errorf("unexpected loaded config %+v", loaded)
	}
	if len(loaded.Server.CORSOrigins) != 1 || loaded.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected CORS origins %v", loaded.Server.CORSOrigins)
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attnviz.yaml")

	created, err := InitConfig(path)
	if err != nil || !created {
		t.Fatalf("InitConfig = %v, %v", created, err)
	}

	if err := os.WriteFile(path, []byte("text: kept\n"), 0644); err != nil {
		t.Fatal(err)
	}
	created, err = InitConfig(path)
	if err != nil || created {
		t.Fatalf("Expected existing file to be kept, got %v, %v", created, err)
	}
	cfg, err := Load(path)
	if err != nil || cfg.Text != "kept" {
		t.Errorf("Expected existing config to survive, got %+v, %v", cfg, err)
	}
}

func TestShellConfig_UseColor(t *testing.T) {
	tests := []struct {
		mode  string
		isTTY bool
		want  bool
	}{
		{ColorAuto, true, true},
		{ColorAuto, false, false},
		{ColorAlways, false, true},
		{ColorNever, true, false},
	}
	for _, tt := range tests {
		if got := (ShellConfig{Color: tt.mode}).UseColor(tt.isTTY); got != tt.want {
			t.Errorf("UseColor(%s, %v) = %v, want %v", tt.mode, tt.isTTY, got, tt.want)
		}
	}
}
