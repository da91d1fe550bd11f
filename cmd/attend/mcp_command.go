package main

import (
	"github.com/spf13/cobra"

	"github.com/jwulff/attend/internal/db"
	"github.com/jwulff/attend/internal/mcpserver"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the attendance log to MCP clients over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, closer, err := ctx.logger(false)
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := db.Open(cfg.DBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			srv := mcpserver.New(store, version, logger)
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
