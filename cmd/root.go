package cmd

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const envPrefix = "OLIMPO_"

var (
	dsn string
	tz  string
)

var rootCmd = &cobra.Command{
	Use:   "olimpo-checkin",
	Short: "Olimpo checkin scans attendance QR codes at the gym door",
	Long: "Olimpo checkin drives the front desk camera.\n" +
		"When a member shows the gym's attendance QR code, it checks the " +
		"member in with the backend, tells them how their membership " +
		"stands, and announces the visit to the front desk.\n\n" +
		"Every flag can also be set from the environment or a .env file: " +
		"--slackToken is read from OLIMPO_SLACK_TOKEN.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error loading .env: %w", err)
		}
		return bindEnv(cmd.Flags())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dsn, "dsn", "holds.sqlite", "Hold store: a sqlite path or a mysql:// DSN")
	pf.StringVar(&tz, "timezone", "America/Argentina/Buenos_Aires", "Time zone of the gym")
}

// bindEnv fills every flag not set on the command line from its
// environment variable.
func bindEnv(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		v, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}
		if serr := f.Value.Set(v); serr != nil {
			err = fmt.Errorf("invalid %s: %w", envName(f.Name), serr)
		}
	})
	return err
}

// envName maps a flag to its variable: slackToken becomes OLIMPO_SLACK_TOKEN.
func envName(flag string) string {
	var sb strings.Builder
	sb.WriteString(envPrefix)
	for i, r := range flag {
		if unicode.IsUpper(r) && i > 0 {
			sb.WriteByte('_')
		}
		if r == '-' {
			r = '_'
		}
		sb.WriteRune(unicode.ToUpper(r))
	}
	return sb.String()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
