package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/rulematch/internal/app"
)

func newHashCommand(rt *runtime) *cobra.Command {
	var canonicalizer string

	cmd := &cobra.Command{
		Use:   "hash <query>",
		Short: "Print the canonical form and hash of a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := canonicalizer
			if name == "" {
				name = rt.cfg.Canonicalizer
			}
			hasher, err := app.NewHasher(name)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			fmt.Fprintf(cmd.OutOrStdout(), "canonical: %s\nhash: %s\n", hasher.Canonicalize(query), hasher.Hash(query))
			return nil
		},
	}
	cmd.Flags().StringVar(&canonicalizer, "canonicalizer", "", "parser or tokens (default from QUERY_CANONICALIZER)")
	return cmd
}
