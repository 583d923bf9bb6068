package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Timeout != 1*time.Second {
		t.Errorf("Database.Timeout = %v, want 1s", cfg.Database.Timeout)
	}

	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
	}
	if cfg.API.UserAgent == "" {
		t.Error("API.UserAgent should not be empty")
	}

	if cfg.List.Debounce != 400*time.Millisecond {
		t.Errorf("List.Debounce = %v, want 400ms", cfg.List.Debounce)
	}
	if cfg.List.PageSize != 10 {
		t.Errorf("List.PageSize = %d, want 10", cfg.List.PageSize)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Keys.Bindings.Quit != "q" {
		t.Errorf("Keys.Bindings.Quit = %s, want 'q'", cfg.Keys.Bindings.Quit)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[api]
base_url = "https://news.example.com"
timeout = "3s"
user_agent = "test-agent"

[database]
path = "/tmp/test.db"
timeout = "10s"

[list]
debounce = "250ms"
page_size = 50

[ui.colors]
primary = "#FF0000"
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://news.example.com" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.API.UserAgent != "test-agent" {
		t.Errorf("API.UserAgent = %s, want 'test-agent'", cfg.API.UserAgent)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %s, want '/tmp/test.db'", cfg.Database.Path)
	}
	if cfg.Database.Timeout != 10*time.Second {
		t.Errorf("Database.Timeout = %v, want 10s", cfg.Database.Timeout)
	}
	if cfg.List.Debounce != 250*time.Millisecond {
		t.Errorf("List.Debounce = %v, want 250ms", cfg.List.Debounce)
	}
	if cfg.List.PageSize != 50 {
		t.Errorf("List.PageSize = %d, want 50", cfg.List.PageSize)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
}

func TestLoad_InvalidPageSizeFallsBack(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[list]\npage_size = 33\nsentinel_rows = 0\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.List.PageSize != 10 {
		t.Errorf("List.PageSize = %d, want 10", cfg.List.PageSize)
	}
	if cfg.List.SentinelRows != 2 {
		t.Errorf("List.SentinelRows = %d, want 2", cfg.List.SentinelRows)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LUMINA_API_BASE_URL", "https://env.example.com")
	t.Setenv("LUMINA_API_TOKEN", "env-token")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[api]\nbase_url = \"https://file.example.com\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("API.BaseURL = %s, want env override", cfg.API.BaseURL)
	}
	if cfg.API.Token != "env-token" {
		t.Errorf("API.Token = %q, want env-token", cfg.API.Token)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{
		API: APIConfig{
			BaseURL:   "https://saved.example.com",
			Timeout:   7 * time.Second,
			UserAgent: "test-save-agent",
		},
		Database: DatabaseConfig{
			Path:    "/test/path.db",
			Timeout: 10 * time.Second,
		},
		List: ListConfig{
			Debounce: 300 * time.Millisecond,
			PageSize: 100,
		},
		Keys: KeyConfig{
			Modifier: "alt",
			Bindings: KeyBindings{
				Quit: "x",
			},
		},
	}

	savePath := filepath.Join(tmpDir, "nested", "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Database.Path != cfg.Database.Path {
		t.Errorf("Loaded Database.Path = %s, want %s", loaded.Database.Path, cfg.Database.Path)
	}
	if loaded.API.UserAgent != cfg.API.UserAgent {
		t.Errorf("Loaded API.UserAgent = %s, want %s", loaded.API.UserAgent, cfg.API.UserAgent)
	}
	if loaded.API.Timeout != cfg.API.Timeout {
		t.Errorf("Loaded API.Timeout = %v, want %v", loaded.API.Timeout, cfg.API.Timeout)
	}
	if loaded.List.Debounce != cfg.List.Debounce {
		t.Errorf("Loaded List.Debounce = %v, want %v", loaded.List.Debounce, cfg.List.Debounce)
	}
	if loaded.List.PageSize != 100 {
		t.Errorf("Loaded List.PageSize = %d, want 100", loaded.List.PageSize)
	}
	if loaded.Keys.Modifier != cfg.Keys.Modifier {
		t.Errorf("Loaded Keys.Modifier = %s, want %s", loaded.Keys.Modifier, cfg.Keys.Modifier)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Generated config has Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.List.Debounce != 400*time.Millisecond {
		t.Errorf("Generated config has List.Debounce = %v, want 400ms", cfg.List.Debounce)
	}
}

func TestRender_RedactsToken(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.Token = "secret-token"

	out, err := Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	text := string(out)
	if strings.Contains(text, "secret-token") {
		t.Error("Render() leaked the API token")
	}
	if !strings.Contains(text, "base_url") {
		t.Errorf("Render() output missing base_url:\n%s", text)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := expandPath("~/x/y.db"); got != filepath.Join(home, "x", "y.db") {
		t.Errorf("expandPath(~/x/y.db) = %s", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("expandPath(\"\") = %q, want empty", got)
	}
	if got := expandPath("rel.db"); !filepath.IsAbs(got) {
		t.Errorf("expandPath(rel.db) = %s, want absolute", got)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}
	if cfg.API.UserAgent != "lumina-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s, want 'lumina-test/1.0'", cfg.API.UserAgent)
	}
	if cfg.List.Debounce >= 400*time.Millisecond {
		t.Errorf("TestConfig List.Debounce = %v, want a short debounce", cfg.List.Debounce)
	}
}
