package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/lumina/internal/api"
	"github.com/pders01/lumina/internal/debuglog"
	"github.com/pders01/lumina/internal/listing"
	"github.com/pders01/lumina/internal/storage"
)

var flagListQuery string

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "Print one page of articles and the category counts",
	Example: "  lumina list --query 'search=ai&page=2&size=20'",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringVarP(&flagListQuery, "query", "q", "", "list query string, as kept in the location")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	var store *storage.Store
	if s, err := openStore(cfg); err != nil {
		debuglog.Warnf("listing without stored credentials: %v", err)
	} else {
		defer s.Close()
		store = s
	}
	client, err := newClient(cfg, store)
	if err != nil {
		return err
	}

	state := listing.Decode(listing.ParseQuery(flagListQuery))

	var (
		result *api.ListResult
		stats  []api.CategoryCount
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		res, err := client.ListArticles(ctx, listing.ListParams(state))
		result = res
		return err
	})
	g.Go(func() error {
		res, err := client.CategoryStats(ctx, listing.StatsParams(state))
		stats = res
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("listing articles: %w", err)
	}

	printList(cmd.OutOrStdout(), state, result, stats)
	return nil
}

func printList(w io.Writer, state listing.FilterState, result *api.ListResult, stats []api.CategoryCount) {
	pages := 1
	if result.Total > 0 {
		pages = (result.Total + state.PageSize - 1) / state.PageSize
	}
	fmt.Fprintf(w, "page %d/%d • %d articles\n", state.Page, pages, result.Total)
	categoryName := func(id string) string {
		for _, c := range stats {
			if string(c.ID) == id {
				return c.Name
			}
		}
		return ""
	}
	if active := state.ActiveFilters(categoryName); len(active) > 0 {
		fmt.Fprintf(w, "filters: %s\n", strings.Join(active, ", "))
	}
	fmt.Fprintln(w)

	for _, a := range result.Items {
		date := "          "
		if a.PublishedAt != nil {
			date = a.PublishedAt.Format("2006-01-02")
		}
		flag := " "
		if !a.Visible {
			flag = "h"
		}
		fmt.Fprintf(w, "%-8s %s %s %s (%s)\n", a.ID, date, flag, a.Title, a.SourceDomain)
	}

	if len(stats) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "categories:")
		for _, c := range stats {
			fmt.Fprintf(w, "  %-20s %d\n", c.Name, c.Count)
		}
	}
}
