package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/dshills/sitesmith/internal/app"
	"github.com/dshills/sitesmith/internal/auth"
	"github.com/dshills/sitesmith/internal/billing"
	"github.com/dshills/sitesmith/internal/engine/project"
)

func newRebuildCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild [url]",
		Short: "Reconstruct a site from a URL and print the project JSON",
		Long: `Fetches the page at url and runs it through the brief, design guide and
blueprint stages. The resulting project is printed to stdout; nothing is
saved. Requires ai.api_key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.NewPipeline(cmd.Context(), c.cfg.AI, c.logger)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.logger.Info("rebuild complete",
				zap.String("url", args[0]),
				zap.Int("pages", len(res.Project.Pages)),
				zap.Int("sections", res.Project.SectionCount()),
				zap.Duration("took", res.Duration),
			)

			data, err := project.API().MarshalIndent(res.Project, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newPacksCmd(c *cli) *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "List the configured credit packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := billing.NewCatalog(c.cfg.Billing.Packs)
			if err != nil {
				return err
			}
			if locale == "" {
				locale = c.cfg.Billing.Locale
			}
			tag, err := language.Parse(locale)
			if err != nil {
				return fmt.Errorf("locale %q: %w", locale, err)
			}
			return writePacks(cmd, catalog, tag)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "locale for price formatting (default billing.locale)")
	return cmd
}

func writePacks(cmd *cobra.Command, catalog *billing.Catalog, tag language.Tag) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREDITS\tPRICE\tPRICE ID")
	for _, p := range catalog.List() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Credits, p.DisplayPrice(tag), p.PriceID)
	}
	return w.Flush()
}

func newTokenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "token [user-id] [email]",
		Short: "Mint a session token for local testing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.NewVerifier(c.cfg.Auth)
			if err != nil {
				return err
			}
			token, err := v.Issue(auth.Identity{UserID: args[0], Email: args[1]})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}
