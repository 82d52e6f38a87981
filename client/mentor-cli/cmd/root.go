package cmd

import (
	"fmt"
	"os"
	"time"

	apiclient "student_mentor/backend/go/pkg/http"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	sessionPath string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mentor-cli",
		Short:         "A CLI client for the student mentor service",
		Long:          `Sign up, log in and chat with your AI mentor. Facts the mentor learns about you can be listed at any time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "mentor service base URL")
	root.PersistentFlags().StringVar(&sessionPath, "session", defaultSessionPath(), "file that stores the logged-in session")

	root.AddCommand(newSignupCmd(), newLoginCmd(), newChatCmd(), newFactsCmd(), newSummaryCmd())
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newClient talks to the API. Streaming replies can run for minutes, so only
// the breaker limits how long a dead server is retried.
func newClient() *apiclient.Client {
	return apiclient.NewClient(apiclient.ClientOptions{
		BaseURL: serverURL,
		Breaker: &apiclient.BreakerOptions{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Timeout:          10 * time.Second,
		},
	})
}
