package main

import (
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/export"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var outPath string

func init() {
	RootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "write KML to this file instead of stdout")
}

var exportCmd = &cobra.Command{
	Use:   "export [<spot id>...]",
	Short: "Export spots as KML",
	Long:  "Export the given spots, or every stored spot when no id is given, as a KML document",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer closeRepo()

		var spots []*domain.Spot
		if len(args) == 0 {
			spots, err = repo.ListSpots(cmd.Context())
			if err != nil {
				return err
			}
		}
		for _, id := range args {
			s, err := repo.GetSpot(cmd.Context(), id)
			if err != nil {
				return err
			}
			spots = append(spots, s)
		}

		var out io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		return export.WriteSpotsKML(out, "Drift spots", spots...)
	},
}
