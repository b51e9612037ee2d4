package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/lessslie/olimpo-checkin/payload"
	"github.com/lessslie/olimpo-checkin/qr"
	"github.com/lessslie/olimpo-checkin/types"
	"github.com/spf13/cobra"
)

var (
	qrGym     string
	qrUser    string
	qrBaseUrl string
	qrSize    int
	qrOut     string

	qrCmd = &cobra.Command{
		Use:   "qr",
		Short: "Render the attendance QR code to print at the gym door",
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderQR(time.Now())
		},
	}
)

func init() {
	f := qrCmd.Flags()
	f.StringVar(&qrGym, "gym", "", "Gym id the code checks into")
	f.StringVar(&qrUser, "user", "", "Member id, for personal codes")
	f.StringVar(&qrBaseUrl, "baseUrl", "", "Wrap the code in this url as ?data=")
	f.IntVar(&qrSize, "size", 512, "Image size in pixels")
	f.StringVar(&qrOut, "out", "attendance.png", "Where to write the PNG")
	qrCmd.MarkFlagRequired("gym")

	rootCmd.AddCommand(qrCmd)
}

func renderQR(now time.Time) error {
	intent := types.AttendanceIntent{
		Kind:          types.AttendanceKind,
		FacilityID:    qrGym,
		SubjectUserID: qrUser,
		IssuedAt:      now,
	}

	var text string
	var err error
	if qrBaseUrl != "" {
		text, err = payload.EncodeURL(qrBaseUrl, intent)
	} else {
		text, err = payload.EncodeJSON(intent)
	}
	if err != nil {
		return fmt.Errorf("error encoding code: %w", err)
	}

	if err := qr.WritePNG(text, qrSize, qrOut); err != nil {
		return err
	}
	log.Printf("wrote %s: %s", qrOut, text)
	return nil
}
