package main

import (
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/soundware/sndw/logging"
	"github.com/ZanzyTHEbar/soundware/sndw/playlists"
	"github.com/ZanzyTHEbar/soundware/sndw/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if listenAddr != "" {
			a.cfg.Server.Addr = listenAddr
		}

		orch, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		orch.Sessions().StartJanitor(ctx, a.cfg.Sessions.SweepInterval)

		srv := server.New(
			a.cfg.Server,
			orch,
			playlists.NewLibSQLStore(a.db),
			a.registry,
			logging.Component(a.logger, "http"),
		)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "override server.addr")
}
