package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/yelpcamp/apiserver/config"
	"github.com/yelpcamp/apiserver/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "yelpcamp",
	Short: "YelpCamp API server",
	Long: `YelpCamp serves the campground listing API and its supporting jobs.

	yelpcamp server        run the HTTP API
	yelpcamp migrate up    apply database migrations
	yelpcamp worker        deliver queued mail
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		logger.SetupDefault(os.Stdout, cfg.LogLevel)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
