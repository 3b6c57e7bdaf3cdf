package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigtime/bigtime/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the central server side of the sync pair",
	Long: `Serve the sync API over the local database. Clients point their
server_url at this process; the api_key setting becomes the bearer token
they must present.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(a.db, a.cfg.APIKey, a.log)
		fmt.Printf("Serving BigTime API on %s\n", a.cfg.Listen)
		return srv.ListenAndServe(a.cfg.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
