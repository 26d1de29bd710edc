package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"go.withmatt.com/mailsweep/internal/log"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mailsweep",
	Short: "Inventory and clean up newsletter senders in a Gmail inbox",
	Long: `mailsweep scans a Gmail inbox, groups messages by sender, scores each
sender's newsletter likelihood, and can unsubscribe, block, and delete.`,
	Version: version,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		return log.Setup(debug)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return log.Close()
	},
}

func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
