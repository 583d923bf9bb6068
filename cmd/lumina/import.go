package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/debuglog"
	"github.com/pders01/lumina/internal/importer"
	"github.com/pders01/lumina/internal/validation"
)

var (
	flagFullText     bool
	flagWorkers      int
	flagCategory     string
	flagAllowPrivate bool
)

var importCmd = &cobra.Command{
	Use:   "import <feed-url>",
	Short: "Create backend articles from an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagFullText, "full-text", false, "extract the full article body from each link")
	importCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent article requests (default from config)")
	importCmd.Flags().StringVar(&flagCategory, "category", "", "category id for the new articles")
	importCmd.Flags().BoolVar(&flagAllowPrivate, "allow-private", false, "allow feeds on private or loopback hosts")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	client, err := newClient(cfg, store)
	if err != nil {
		return err
	}

	opts := importer.Options{
		Workers:    cfg.List.ImportWorkers,
		FullText:   cfg.List.ImportFullText || flagFullText,
		Timeout:    cfg.API.Timeout,
		UserAgent:  cfg.API.UserAgent,
		CategoryID: api.ID(flagCategory),
	}
	if flagWorkers > 0 {
		opts.Workers = flagWorkers
	}
	if flagAllowPrivate {
		opts.Policy = validation.PermissivePolicy()
	}

	report, err := importer.New(client, opts).Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d articles from %s (%d skipped, %d failed)\n",
		len(report.Created), report.Feed, report.Skipped, len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  [fail] %v\n", f)
	}
	if len(report.Created) > 0 {
		if err := store.SaveArticles(report.Created); err != nil {
			debuglog.Warnf("caching imported articles: %v", err)
		}
	}
	if len(report.Created) == 0 && len(report.Failed) > 0 {
		return fmt.Errorf("no articles imported")
	}
	return nil
}
