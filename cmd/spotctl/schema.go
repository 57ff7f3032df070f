package main

import (
	"drift-spot-service/internal/adapters/repositories"
	"log"

	"github.com/spf13/cobra"
)

var seedPath string

func init() {
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedPath, "file", "f", "", "seed JSON file (defaults to SEED_PATH)")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the spots schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, _, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		log.Println("Initializing database schema...")
		if err := repositories.InitSchema(cmd.Context(), pool); err != nil {
			return err
		}
		log.Println("Schema ready.")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and load spots from a JSON file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, cfg, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		path := seedPath
		if path == "" {
			path = cfg.SeedPath
		}

		if err := repositories.InitSchema(cmd.Context(), pool); err != nil {
			return err
		}

		log.Printf("Seeding database from %s...", path)
		n, err := repositories.SeedFromJSON(cmd.Context(), pool, path)
		if err != nil {
			return err
		}
		log.Printf("Seeding complete. spots=%d", n)
		return nil
	},
}
