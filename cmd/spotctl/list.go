package main

import (
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"encoding/json"
	"fmt"
	"io"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var jsonfmt bool

func init() {
	RootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVarP(&jsonfmt, "json", "j", false, "format spots in JSON")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored spots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer closeRepo()

		spots, err := repo.ListSpots(cmd.Context())
		if err != nil {
			return err
		}

		if jsonfmt {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(spots)
		}
		return printSpots(cmd.OutOrStdout(), spots)
	},
}

func printSpots(w io.Writer, spots []*domain.Spot) error {
	for _, s := range spots {
		created := "-"
		if !s.CreatedAt.IsZero() {
			created = humanize.Time(s.CreatedAt)
		}

		_, err := fmt.Fprintf(w, "%-38s %-30s %-8s %8s km %6s pts %6s likes  by %s, %s\n",
			s.ID, s.Name, s.Difficulty,
			humanize.FormatFloat("#,###.##", geo.PathLengthKm(s.Points)),
			humanize.Comma(int64(len(s.Points))),
			humanize.Comma(int64(s.Likes)),
			s.CreatorName, created,
		)
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%s spots\n", humanize.Comma(int64(len(spots))))
	return err
}
