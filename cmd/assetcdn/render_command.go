package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"assetcdn/internal/tags"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var attrFlags []string
	var raw bool

	cmd := &cobra.Command{
		Use:   "render <asset>[,<asset>...]",
		Short: "Print the tag a template would render for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := parseAssetArg(args[0])
			if err != nil {
				return err
			}
			attrs, err := parseAttrFlags(attrFlags)
			if err != nil {
				return err
			}
			if raw {
				if attrs == nil {
					attrs = map[string]string{}
				}
				attrs["raw"] = "true"
			}

			renderer := tags.New(tags.Options{
				Production:   cfg.CDN.Production,
				Domain:       cfg.CDN.Domain,
				SSL:          cfg.CDN.SSL,
				Prefix:       cfg.Store.Prefix,
				AppendPrefix: cfg.ShouldAppendPrefix(),
				PublicDir:    cfg.Paths.PublicDir,
			})
			tag, err := renderer.Render(req, attrs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tag)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&attrFlags, "attr", nil, "HTML attribute as key=value (repeatable)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the bare URL instead of a tag")
	return cmd
}
