package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"ipvcore/internal/journey/maps"
	"ipvcore/internal/journey/statemachine"
)

func newJourneyCmd(_ *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Inspect journey maps",
	}
	cmd.AddCommand(newJourneyValidateCmd())
	return cmd
}

func newJourneyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Load and check journey maps, the embedded set by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fsys fs.FS = maps.FS
			if len(args) == 1 {
				fsys = os.DirFS(args[0])
			}
			reg, err := statemachine.NewRegistry(fsys)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range reg.Journeys() {
				m, _ := reg.Get(name)
				fmt.Fprintf(out, "%s\tinitial=%s\n", name, m.InitialState())
			}
			return nil
		},
	}
}
