package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"go.withmatt.com/mailsweep/internal/cache"
	"go.withmatt.com/mailsweep/internal/clean"
	"go.withmatt.com/mailsweep/internal/config"
	"go.withmatt.com/mailsweep/internal/fetch"
	"go.withmatt.com/mailsweep/internal/log"
	"go.withmatt.com/mailsweep/internal/scan"
	"go.withmatt.com/mailsweep/internal/unsub"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [email]",
	Short: "Select scanned senders and unsubscribe, block, and delete",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("rescan", false, "run a fresh scan instead of using the cached one")
	cleanCmd.Flags().Bool("block-only", false, "block senders without attempting unsubscribe")
	cleanCmd.Flags().Bool("delete-only", false, "delete messages without unsubscribing or blocking")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	blockOnly, _ := cmd.Flags().GetBool("block-only")
	deleteOnly, _ := cmd.Flags().GetBool("delete-only")
	if blockOnly && deleteOnly {
		return errors.New("--block-only and --delete-only are mutually exclusive")
	}

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

	senders, err := loadSenders(cmd, account, client)
	if err != nil {
		return err
	}
	if len(senders) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No eligible senders found.")
		return nil
	}

	selected, err := selectSenders(senders)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing selected.")
		return nil
	}

	intent := scan.IntentUnsubscribe
	if blockOnly {
		intent = scan.IntentBlock
	} else if deleteOnly {
		intent = scan.IntentDelete
	}

	plans := make([]scan.PlannedAction, 0, len(selected))
	total := 0
	for _, sender := range selected {
		plans = append(plans, scan.Plan(sender, intent))
		total += sender.MessageCount
	}

	ok, err := confirmClean(len(selected), total)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	runner := &clean.Runner{
		Unsubscriber: unsub.NewExecutor(),
		Filters:      client,
		Deleter:      client,
		Logf:         log.Printf,
	}
	results := runner.Run(ctx, selected, plans)
	printResults(cmd, results)
	return nil
}

// loadSenders returns the eligible senders to offer, from the cached scan
// unless --rescan was given or no cache exists.
func loadSenders(
	cmd *cobra.Command,
	account config.Account,
	client scan.MailboxClient,
) ([]scan.ScoredSender, error) {
	rescan, _ := cmd.Flags().GetBool("rescan")

	if !rescan {
		if path, err := cache.DefaultPath(); err == nil {
			if store, err := cache.Open(path); err == nil {
				cached, err := store.LoadScan(account.Email)
				_ = store.Close()
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Using scan from %s (--rescan to refresh)\n",
						cached.ScannedAt.Local().Format("2006-01-02 15:04"))
					return eligibleOnly(cached.Senders), nil
				}
				if !errors.Is(err, cache.ErrNoScan) {
					log.Printf("unable to load cached scan: %v", err)
				}
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scanning %s...\n", account.Email)
	scanner := &scan.Scanner{
		Client: client,
		Policy: fetch.DefaultPolicy(),
		Logf:   log.Printf,
	}
	result, err := scanner.Run(cmd.Context())
	if err != nil {
		return nil, err
	}
	if result.FailedFetches > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"Warning: %d of %d messages could not be fetched\n",
			result.FailedFetches, result.TotalMessages)
	}
	return eligibleOnly(result.Senders), nil
}

func eligibleOnly(senders []scan.ScoredSender) []scan.ScoredSender {
	eligible := make([]scan.ScoredSender, 0, len(senders))
	for _, sender := range senders {
		if sender.Eligible {
			eligible = append(eligible, sender)
		}
	}
	return eligible
}

func selectSenders(senders []scan.ScoredSender) ([]scan.ScoredSender, error) {
	options := make([]huh.Option[int], 0, len(senders))
	for i, sender := range senders {
		options = append(options, huh.NewOption(formatSender(sender), i))
	}

	var picked []int
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[int]().
			Title("Select senders to clean").
			Options(options...).
			Value(&picked),
	))
	if err := form.Run(); err != nil {
		return nil, err
	}

	selected := make([]scan.ScoredSender, 0, len(picked))
	for _, i := range picked {
		selected = append(selected, senders[i])
	}
	return selected, nil
}

func formatSender(sender scan.ScoredSender) string {
	name := sender.DisplayName
	if name == "" {
		name = sender.Address
	}
	return fmt.Sprintf("%s (%d msgs) [%s] score %.2f",
		name, sender.MessageCount, unsubscribeLabel(sender), sender.Score)
}

func confirmClean(senderCount, messageCount int) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Delete %d messages from %d senders?", messageCount, senderCount)).
			Description("Deletion is permanent; there is no undo.").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

func printResults(cmd *cobra.Command, results []clean.Result) {
	for _, result := range results {
		status := ""
		if result.Unsubscribed {
			status += " unsubscribed"
		}
		if result.Blocked {
			status += " blocked"
		}
		status += fmt.Sprintf(" deleted=%d", result.Deleted)
		if result.Err != nil {
			status += fmt.Sprintf(" error=%v", result.Err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", result.Sender, status)
	}
}
