package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/config"
	"github.com/pders01/lumina/internal/debuglog"
	"github.com/pders01/lumina/internal/storage"
	"github.com/pders01/lumina/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	flagConfig string
	flagDB     string
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:           "lumina",
	Short:         "Terminal reader for an article backend",
	Long:          "lumina browses, filters and moderates the articles served by a news backend.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lumina %s\n", Version)
		fmt.Println("Article reader")
		fmt.Println("github.com/pders01/lumina")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration",
	Run: func(cmd *cobra.Command, args []string) {
		path := flagConfig
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			return
		}
		fmt.Printf("Generated default configuration at: %s\n", path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := config.Render(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to database file (overrides config)")
	rootCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "skip startup banner")

	configCmd.AddCommand(configGenCmd, configShowCmd)
	rootCmd.AddCommand(versionCmd, configCmd, listCmd, importCmd, loginCmd, logoutCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration, applies flag overrides and starts
// logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.NewStoreWithTimeout(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

// newClient builds the API client. A token or language in the config wins
// over the stored preference. store may be nil.
func newClient(cfg *config.Config, store *storage.Store) (*api.Client, error) {
	client, err := api.NewClient(cfg.API)
	if err != nil {
		return nil, err
	}
	lang := cfg.UI.Language
	if store != nil {
		if cfg.API.Token == "" {
			if token, err := store.Token(); err == nil {
				client.SetToken(token)
			}
		}
		if lang == "" {
			lang, _ = store.Language()
		}
	}
	if lang != "" {
		client.SetLanguage(lang)
	}
	return client, nil
}

func showBanner() {
	tui.ShowBanner(Version)
}
