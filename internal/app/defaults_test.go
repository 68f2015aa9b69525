package app

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses environment overrides", func(t *testing.T) {
		t.Setenv("FILEDEX_CONFIG_PATH", "/custom/filedex.toml")
		t.Setenv("FILEDEX_HOME", "/custom/data")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/filedex.toml" {
			t.Errorf("config_path = %q, want /custom/filedex.toml", defaults["config_path"])
		}
		if defaults["base_dir"] != "/custom/data" {
			t.Errorf("base_dir = %q, want /custom/data", defaults["base_dir"])
		}
		if defaults["log_dir"] != filepath.Join("/custom/data", "log") {
			t.Errorf("log_dir = %q, want under base_dir", defaults["log_dir"])
		}
	})

	t.Run("falls back to home directory", func(t *testing.T) {
		t.Setenv("FILEDEX_CONFIG_PATH", "")
		t.Setenv("FILEDEX_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if !strings.HasSuffix(defaults["config_path"], filepath.Join(".config", "filedex.toml")) {
			t.Errorf("config_path = %q, want ~/.config/filedex.toml", defaults["config_path"])
		}
		if !strings.HasSuffix(defaults["base_dir"], filepath.Join(".local", "share", "filedex")) {
			t.Errorf("base_dir = %q, want ~/.local/share/filedex", defaults["base_dir"])
		}
	})
}
