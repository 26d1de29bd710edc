package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go.withmatt.com/mailsweep/internal/cache"
	"go.withmatt.com/mailsweep/internal/config"
	"go.withmatt.com/mailsweep/internal/fetch"
	"go.withmatt.com/mailsweep/internal/log"
	"go.withmatt.com/mailsweep/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [email]",
	Short: "Scan the inbox and rank senders by newsletter likelihood",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().Bool("all", false, "show all senders, not just eligible ones")
	scanCmd.Flags().Int("max", scan.DefaultMaxMessages, "maximum messages to inspect")
	scanCmd.Flags().Int("concurrency", fetch.DefaultConcurrency, "concurrent metadata fetches")
	scanCmd.Flags().Int64("page-size", scan.DefaultPageSize, "message list page size")
	scanCmd.Flags().Bool("include-spam-trash", false, "include spam and trash in the scan")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	account, err := resolveAccount(cfg, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := newGmailClient(ctx, account.Email)
	if err != nil {
		return err
	}
	includeSpamTrash, _ := cmd.Flags().GetBool("include-spam-trash")
	client.IncludeSpamTrash(includeSpamTrash)

	maxMessages, _ := cmd.Flags().GetInt("max")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	pageSize, _ := cmd.Flags().GetInt64("page-size")

	fmt.Fprintf(cmd.OutOrStdout(), "Scanning %s...\n", account.Email)

	scanner := &scan.Scanner{
		Client:      client,
		PageSize:    pageSize,
		MaxMessages: maxMessages,
		Concurrency: concurrency,
		Policy:      fetch.DefaultPolicy(),
		Logf:        log.Printf,
	}
	result, err := scanner.Run(ctx)
	if err != nil {
		return err
	}

	if path, err := cache.DefaultPath(); err == nil {
		if store, err := cache.Open(path); err == nil {
			if err := store.SaveScan(account.Email, result); err != nil {
				log.Printf("unable to cache scan: %v", err)
			}
			_ = store.Close()
		}
	}

	showAll, _ := cmd.Flags().GetBool("all")
	printSenders(cmd, result, showAll)

	if result.FailedFetches > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"Warning: %d of %d messages could not be fetched\n",
			result.FailedFetches, result.TotalMessages)
	}
	return nil
}

func printSenders(cmd *cobra.Command, result *scan.Result, showAll bool) {
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "score\tmsgs\tunsubscribe\tsender")
	fmt.Fprintln(writer, "-----\t----\t-----------\t------")

	shown := 0
	for _, sender := range result.Senders {
		if !showAll && !sender.Eligible {
			continue
		}
		fmt.Fprintf(writer, "%.2f\t%d\t%s\t%s\n",
			sender.Score, sender.MessageCount,
			unsubscribeLabel(sender), sender.Address)
		shown++
	}
	writer.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d senders shown (%d total, %d messages scanned)\n",
		shown, len(result.Senders), result.TotalMessages)
}

func unsubscribeLabel(sender scan.ScoredSender) string {
	switch {
	case sender.OneClick && sender.Target != nil && sender.Target.Kind == scan.TargetHTTP:
		return "one-click"
	case sender.Target != nil && sender.Target.Kind == scan.TargetHTTP:
		return "manual"
	case sender.Target != nil && sender.Target.Kind == scan.TargetMailto:
		return "mailto"
	case sender.HasUnsubscribe:
		return "unsupported"
	default:
		return "none"
	}
}
