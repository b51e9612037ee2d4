package cmd

import (
	"fmt"
	"log"

	"github.com/lessslie/olimpo-checkin/db"
	pb "github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	dstDsn string

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Copy the hold store into another database, e.g. a shared MySQL",
		RunE:  migrate,
	}
)

func init() {
	migrateCmd.Flags().StringVar(&dstDsn, "dst-dsn", "", "Destination DSN")
	migrateCmd.MarkFlagRequired("dst-dsn")

	rootCmd.AddCommand(migrateCmd)
}

func migrate(cmd *cobra.Command, args []string) error {
	src, err := db.New(dsn, tz)
	if err != nil {
		return fmt.Errorf("error opening source: %w", err)
	}
	defer src.Close()

	dst, err := db.New(dstDsn, tz)
	if err != nil {
		return fmt.Errorf("error opening destination: %w", err)
	}
	defer dst.Close()

	num, err := src.CountHolds(cmd.Context())
	if err != nil {
		return err
	}
	log.Printf("Migrating %d holds", num)

	bar := pb.Default(num)
	n, err := db.MigrateHolds(cmd.Context(), src, dst, func() { bar.Add(1) })
	if err != nil {
		return err
	}

	log.Printf("Done, %d holds migrated", n)
	return nil
}
