package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"assetcdn/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the CDN references found in the views directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			reqs, err := scan.New(cfg.Scan.Extensions, logger).Dir(cmd.Context(), cfg.Paths.ViewsDir)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, reqs)
			}

			out := cmd.OutOrStdout()
			if len(reqs) == 0 {
				fmt.Fprintf(out, "No CDN references found under %s\n", cfg.Paths.ViewsDir)
				return nil
			}
			rows := make([][]string, 0, len(reqs))
			for i, req := range reqs {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					req.String(),
					kindLabel(req),
					yesNo(req.IsBundle()),
					formatAttrs(req.Attrs),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{rightColumn("#"), leftColumn("Assets"), leftColumn("Kind"), leftColumn("Bundle"), leftColumn("Attributes")},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the request list as JSON")
	return cmd
}
