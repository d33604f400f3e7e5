// Package main provides the charactercast command line client.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/maauso/charactercast-api/internal/client"
	"github.com/maauso/charactercast-api/internal/config"
)

var (
	apiURL   string
	apiToken string

	clientCfg *config.ClientConfig
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "charactercast",
	Short:         "CharacterCast API client",
	Long:          "Submit character video jobs, drive them through the pipeline and follow their progress.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadClient()
		if err != nil {
			return err
		}
		if apiURL == "" {
			apiURL = cfg.APIURL
		}
		if apiToken == "" {
			apiToken = cfg.Token
		}
		clientCfg = cfg
		logger = cfg.NewLogger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides CHARACTERCAST_API_URL)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Bearer token (overrides CHARACTERCAST_TOKEN)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newAPIClient returns a client for commands that talk to the API.
func newAPIClient() (*client.Client, error) {
	if apiToken == "" {
		return nil, fmt.Errorf("a token is required (set CHARACTERCAST_TOKEN or use --token)")
	}
	return client.New(apiURL, client.WithToken(apiToken)), nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
