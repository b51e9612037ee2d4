package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/lessslie/olimpo-checkin/payload"
	"github.com/lessslie/olimpo-checkin/qr"
	"github.com/lessslie/olimpo-checkin/types"
	"github.com/spf13/cobra"
)

type decodeResult struct {
	File   string                  `json:"file"`
	Raw    string                  `json:"raw,omitempty"`
	Intent *types.AttendanceIntent `json:"intent,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func init() {
	var harder bool
	c := &cobra.Command{
		Use:   "decode <image>...",
		Short: "Decode attendance codes from image files without checking in",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decodeFiles(qr.NewDecoder(harder), args)
		},
	}
	c.Flags().BoolVar(&harder, "tryHarder", true, "Spend more time per image looking for codes")
	rootCmd.AddCommand(c)
}

func decodeFiles(d *qr.Decoder, files []string) error {
	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, f := range files {
		r := decodeFile(d, f)
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images had no valid attendance code", failed, len(files))
	}
	return nil
}

func decodeFile(d *qr.Decoder, file string) decodeResult {
	r := decodeResult{File: file}

	img, err := imaging.Open(file, imaging.AutoOrientation(true))
	if err != nil {
		r.Error = err.Error()
		return r
	}

	raw, ok := d.Decode(img)
	if !ok {
		r.Error = "no code found"
		return r
	}
	r.Raw = raw

	intent, err := payload.Validate(raw)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Intent = &intent
	return r
}
