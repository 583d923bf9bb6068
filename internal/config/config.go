package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	List     ListConfig     `mapstructure:"list"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	// Token overrides the token stored with `lumina login`.
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type ListConfig struct {
	Debounce        time.Duration `mapstructure:"debounce"`
	PageSize        int           `mapstructure:"page_size"`
	CompactWidth    int           `mapstructure:"compact_width"`
	SentinelRows    int           `mapstructure:"sentinel_rows"`
	CacheRetention  time.Duration `mapstructure:"cache_retention"`
	ImportWorkers   int           `mapstructure:"import_workers"`
	ImportFullText  bool          `mapstructure:"import_full_text"`
	RestoreLastView bool          `mapstructure:"restore_last_view"`
}

type UIConfig struct {
	Language string        `mapstructure:"language"`
	Style    string        `mapstructure:"style"`
	Colors   UIColors      `mapstructure:"colors"`
	Article  ArticleConfig `mapstructure:"article"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type ArticleConfig struct {
	MaxSummaryLength int `mapstructure:"max_summary_length"`
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit             string `mapstructure:"quit"`
	Search           string `mapstructure:"search"`
	Filters          string `mapstructure:"filters"`
	ClearFilters     string `mapstructure:"clear_filters"`
	NextPage         string `mapstructure:"next_page"`
	PrevPage         string `mapstructure:"prev_page"`
	JumpPage         string `mapstructure:"jump_page"`
	PageSize         string `mapstructure:"page_size"`
	Sort             string `mapstructure:"sort"`
	QuickDate        string `mapstructure:"quick_date"`
	Select           string `mapstructure:"select"`
	SelectAll        string `mapstructure:"select_all"`
	ToggleVisibility string `mapstructure:"toggle_visibility"`
	Category         string `mapstructure:"category"`
	Delete           string `mapstructure:"delete"`
	Open             string `mapstructure:"open"`
	OfflineSearch    string `mapstructure:"offline_search"`
	HistoryBack      string `mapstructure:"history_back"`
	HistoryForward   string `mapstructure:"history_forward"`
	Back             string `mapstructure:"back"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".lumina")

	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   15 * time.Second,
			UserAgent: "lumina/1.0 (https://github.com/pders01/lumina)",
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "lumina.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		List: ListConfig{
			Debounce:        400 * time.Millisecond,
			PageSize:        10,
			CompactWidth:    100,
			SentinelRows:    2,
			CacheRetention:  30 * 24 * time.Hour,
			ImportWorkers:   4,
			ImportFullText:  false,
			RestoreLastView: true,
		},
		UI: UIConfig{
			Language: "en",
			Style:    "auto",
			Colors: UIColors{
				Primary:   "#F59E0B",
				Secondary: "#38BDF8",
				Accent:    "#A78BFA",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			Article: ArticleConfig{
				MaxSummaryLength: 120,
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
			},
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:             "q",
				Search:           "/",
				Filters:          "f",
				ClearFilters:     "c",
				NextPage:         "n",
				PrevPage:         "p",
				JumpPage:         "g",
				PageSize:         "z",
				Sort:             "s",
				QuickDate:        "t",
				Select:           " ",
				SelectAll:        "a",
				ToggleVisibility: "v",
				Category:         "m",
				Delete:           "x",
				Open:             "o",
				OfflineSearch:    "s",
				HistoryBack:      "[",
				HistoryForward:   "]",
				Back:             "esc",
			},
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "lumina.log"),
		},
	}
}

func Load(configPath string) (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "lumina")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LUMINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"api.base_url", "api.token", "log.level"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)
	normalize(&config)

	return &config, nil
}

// setDefaults registers scalar sections key by key so env overrides such as
// LUMINA_API_TOKEN resolve against nested keys.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("api.user_agent", cfg.API.UserAgent)
	v.SetDefault("api.token", cfg.API.Token)

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.timeout", cfg.Database.Timeout)
	v.SetDefault("database.search_index", cfg.Database.SearchIndex)

	v.SetDefault("list.debounce", cfg.List.Debounce)
	v.SetDefault("list.page_size", cfg.List.PageSize)
	v.SetDefault("list.compact_width", cfg.List.CompactWidth)
	v.SetDefault("list.sentinel_rows", cfg.List.SentinelRows)
	v.SetDefault("list.cache_retention", cfg.List.CacheRetention)
	v.SetDefault("list.import_workers", cfg.List.ImportWorkers)
	v.SetDefault("list.import_full_text", cfg.List.ImportFullText)
	v.SetDefault("list.restore_last_view", cfg.List.RestoreLastView)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)

	v.SetDefault("ui", cfg.UI)
	v.SetDefault("keys", cfg.Keys)
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
}

// normalize replaces out-of-range list settings with their defaults.
func normalize(cfg *Config) {
	def := defaultConfig().List
	switch cfg.List.PageSize {
	case 10, 20, 50, 100:
	default:
		cfg.List.PageSize = def.PageSize
	}
	if cfg.List.Debounce < 0 {
		cfg.List.Debounce = def.Debounce
	}
	if cfg.List.SentinelRows < 1 {
		cfg.List.SentinelRows = def.SentinelRows
	}
	if cfg.List.ImportWorkers < 1 {
		cfg.List.ImportWorkers = def.ImportWorkers
	}
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Convert durations to strings for TOML readability
	apiCfg := map[string]interface{}{
		"base_url":   config.API.BaseURL,
		"timeout":    config.API.Timeout.String(),
		"user_agent": config.API.UserAgent,
		"token":      config.API.Token,
	}

	dbCfg := map[string]interface{}{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	listCfg := map[string]interface{}{
		"debounce":          config.List.Debounce.String(),
		"page_size":         config.List.PageSize,
		"compact_width":     config.List.CompactWidth,
		"sentinel_rows":     config.List.SentinelRows,
		"cache_retention":   config.List.CacheRetention.String(),
		"import_workers":    config.List.ImportWorkers,
		"import_full_text":  config.List.ImportFullText,
		"restore_last_view": config.List.RestoreLastView,
	}

	v.Set("api", apiCfg)
	v.Set("database", dbCfg)
	v.Set("list", listCfg)
	v.Set("ui", config.UI)
	v.Set("keys", config.Keys)
	v.Set("log", config.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// DefaultConfigPath is where Load looks first when no path is given.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lumina", "config.toml")
}

// Render encodes the effective configuration as TOML. The API token is
// redacted.
func Render(cfg *Config) ([]byte, error) {
	token := ""
	if cfg.API.Token != "" {
		token = "********"
	}
	doc := map[string]any{
		"api": map[string]any{
			"base_url":   cfg.API.BaseURL,
			"timeout":    cfg.API.Timeout.String(),
			"user_agent": cfg.API.UserAgent,
			"token":      token,
		},
		"database": map[string]any{
			"path":         cfg.Database.Path,
			"timeout":      cfg.Database.Timeout.String(),
			"search_index": cfg.Database.SearchIndex,
		},
		"list": map[string]any{
			"debounce":          cfg.List.Debounce.String(),
			"page_size":         cfg.List.PageSize,
			"compact_width":     cfg.List.CompactWidth,
			"sentinel_rows":     cfg.List.SentinelRows,
			"cache_retention":   cfg.List.CacheRetention.String(),
			"import_workers":    cfg.List.ImportWorkers,
			"import_full_text":  cfg.List.ImportFullText,
			"restore_last_view": cfg.List.RestoreLastView,
		},
		"ui": map[string]any{
			"language": cfg.UI.Language,
			"style":    cfg.UI.Style,
		},
		"keys": map[string]any{
			"modifier": cfg.Keys.Modifier,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"file":  cfg.Log.File,
		},
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
