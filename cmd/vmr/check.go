package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd(flags *globalFlags) *cobra.Command {
	var listDirectives bool

	cmd := &cobra.Command{
		Use:   "check PAGE...",
		Short: "List the directives that have no handler",
		Long: `Check parses each PAGE and prints the directive attributes that no
handler is registered for. It fails when any is found.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := flags.setup(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if listDirectives {
				for _, name := range e.Registry().Names() {
					fmt.Fprintf(out, "%v-%v\n", e.Prefix(), name)
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("requires at least 1 page")
			}

			found := 0
			for _, page := range args {
				d, err := loadPage(page)
				if err != nil {
					return err
				}

				for _, err := range e.Check(d.Root()) {
					fmt.Fprintf(out, "%v: %v\n", page, err)
					found++
				}
			}

			if found > 0 {
				return fmt.Errorf("%d unknown directives", found)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&listDirectives, "list", "l", false, "list the registered directives")

	return cmd
}
