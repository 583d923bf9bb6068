package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/lumina/internal/auth"
	"github.com/pders01/lumina/internal/debuglog"
)

var (
	flagToken    string
	flagLanguage string
)

var errExpiredToken = errors.New("token has expired")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the API token and preferred language",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored API token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if err := store.SetToken(""); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagToken, "token", "", "bearer token issued by the backend")
	loginCmd.Flags().StringVar(&flagLanguage, "language", "", "Accept-Language sent with every request")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if flagToken == "" && flagLanguage == "" {
		return errors.New("nothing to store: pass --token or --language")
	}
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

	out := cmd.OutOrStdout()
	if flagToken != "" {
		info, err := auth.Inspect(flagToken)
		if err != nil {
			return err
		}
		if info.Expired(time.Now()) {
			return fmt.Errorf("%w (%s)", errExpiredToken, info)
		}
		if err := store.SetToken(auth.Normalize(flagToken)); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}
		fmt.Fprintf(out, "Stored %s\n", info)
	}
	if flagLanguage != "" {
		if err := store.SetLanguage(flagLanguage); err != nil {
			return fmt.Errorf("storing language: %w", err)
		}
		fmt.Fprintf(out, "Language set to %s\n", flagLanguage)
	}
	return nil
}
