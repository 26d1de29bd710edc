package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go.withmatt.com/mailsweep/internal/config"
	"go.withmatt.com/mailsweep/internal/oauth"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage Gmail accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured accounts",
	RunE:  runAccountsList,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Add an account and run the consent flow",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsAdd,
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Remove an account and its cached token",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsRemove,
}

func init() {
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
	rootCmd.AddCommand(accountsCmd)
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.Accounts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured.")
		return nil
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "email\tname\tadded")
	fmt.Fprintln(writer, "-----\t----\t-----")
	for _, account := range cfg.Accounts {
		added := ""
		if !account.AddedAt.IsZero() {
			added = account.AddedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", account.Email, account.Name, added)
	}
	return writer.Flush()
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	email := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Add(config.Account{Email: email, AddedAt: time.Now().UTC()}); err != nil {
		return err
	}

	// Authenticate before saving so a failed consent flow leaves the
	// config untouched.
	if _, err := oauth.GetClient(cmd.Context(), email); err != nil {
		return err
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", email)
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	email := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Remove(email); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	if err := oauth.DeleteToken(email); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", email)
	return nil
}
