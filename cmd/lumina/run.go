package main

import (
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/lumina/internal/debuglog"
	"github.com/pders01/lumina/internal/location"
	"github.com/pders01/lumina/internal/search"
	"github.com/pders01/lumina/internal/storage"
	"github.com/pders01/lumina/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	if !flagQuiet {
		showBanner()
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newClient(cfg, store)
	if err != nil {
		return err
	}

	deps := tui.Deps{
		Backend: client,
		Cache:   store,
		History: location.New(initialQuery(cfg.List.RestoreLastView, store), store),
	}
	index, err := search.Open(cfg.Database.SearchIndex)
	if err != nil {
		debuglog.Warnf("offline search disabled: %v", err)
	} else {
		defer index.Close()
		deps.Index = index
	}

	app := tui.NewApp(cfg, deps)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

// initialQuery restores the query of the last session when enabled.
func initialQuery(restore bool, store *storage.Store) url.Values {
	if !restore {
		return nil
	}
	view, err := store.LastView()
	if err != nil {
		return nil
	}
	q, err := url.ParseQuery(view.Query)
	if err != nil {
		debuglog.Warnf("ignoring stored view %q: %v", view.Query, err)
		return nil
	}
	return q
}
