// Command server runs the dealflow API.
//
//	server serve   [-c config.yaml] [-a :8080] [-d DSN] ...
//	server migrate [-c config.yaml] [-d DSN]
//
// Configuration flags are read by the config package itself, so the
// subcommands pass them through untouched.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/dealflow/internal/server"
	"github.com/dmitrijs2005/dealflow/internal/server/config"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Fundraising deal, term sheet and signature API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:                "serve",
		Short:              "Run the HTTP API",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := server.NewApp(config.LoadConfig())
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:                "migrate",
		Short:              "Apply database migrations and exit",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := server.NewApp(config.LoadConfig())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Migrate(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dealflow %s (build: %s)\n", Version, BuildTime)
		},
	})

	return cmd
}
