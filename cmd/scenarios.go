package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/uiverify/internal/scenario"
)

// newScenariosCmd lists the built-in scenarios and exports them as YAML.
func newScenariosCmd() *cobra.Command {
	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Lists the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTEPS\tDESCRIPTION")
			for _, name := range scenario.Names() {
				sc, err := scenario.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", sc.Name, len(sc.Steps), sc.Description)
			}
			return tw.Flush()
		},
	}

	scenariosCmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Prints a built-in scenario in the scenario file format",
		Long:  "Prints a built-in scenario as YAML. Save the output, edit it and run it with `uiverify run --file`.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Builtin(args[0])
			if err != nil {
				return usageError(err)
			}
			data, err := scenario.Marshal(sc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return scenariosCmd
}
