package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lessslie/olimpo-checkin/db"
	"github.com/spf13/cobra"
)

var (
	holdStore *db.DB
	subject   string

	adminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Admin actions on the kiosk's hold store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			var err error
			holdStore, err = db.New(dsn, tz)
			if err != nil {
				return fmt.Errorf("error opening database: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return holdStore.Close()
		},
	}

	holdsCmd = &cobra.Command{
		Use:   "holds",
		Short: "Inspect members held back by their weekly quota",
	}

	listCmd = &cobra.Command{
		Use: "list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHolds(cmd.Context(), holdStore)
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Let a member try again before the week ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearHold(cmd.Context(), holdStore, subject)
		},
	}

	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Drop holds from past weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return purgeHolds(cmd.Context(), holdStore, time.Now())
		},
	}
)

func init() {
	clearCmd.Flags().StringVar(&subject, "member", "", "Member id to act on")
	clearCmd.MarkFlagRequired("member")

	holdsCmd.AddCommand(listCmd)
	holdsCmd.AddCommand(clearCmd)
	holdsCmd.AddCommand(purgeCmd)
	adminCmd.AddCommand(holdsCmd)

	rootCmd.AddCommand(adminCmd)
}

func listHolds(ctx context.Context, holdStore *db.DB) error {
	holds, err := holdStore.ListHolds(ctx)
	if err != nil {
		return err
	}

	for _, h := range holds {
		used, allowed := "-", "-"
		if h.Membership.VisitsUsedThisWeek != nil {
			used = fmt.Sprint(*h.Membership.VisitsUsedThisWeek)
		}
		if h.Membership.VisitsAllowedPerWeek != nil {
			allowed = fmt.Sprint(*h.Membership.VisitsAllowedPerWeek)
		}
		fmt.Printf(
			"%s,%s,%s,%s/%s\n",
			h.Subject,
			h.FacilityID,
			h.Until.Format(time.DateTime),
			used,
			allowed,
		)
	}
	return nil
}

func clearHold(ctx context.Context, holdStore *db.DB, subject string) error {
	deleted, err := holdStore.DeleteHold(ctx, subject)
	if err != nil {
		return err
	}
	if !deleted {
		log.Printf("%s had no hold", subject)
		return nil
	}
	log.Printf("hold for %s cleared", subject)
	return nil
}

func purgeHolds(ctx context.Context, holdStore *db.DB, now time.Time) error {
	n, err := holdStore.PurgeHolds(ctx, now)
	if err != nil {
		return err
	}
	log.Printf("%d holds purged", n)
	return nil
}
