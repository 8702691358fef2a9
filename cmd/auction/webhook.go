package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var webhookEvents []string

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage your organization's webhook subscriptions",
}

var webhookAddCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Subscribe URL to ledger events",
	Example: `  auction webhook add https://hooks.example.com/auction --event commodity.traded --event commodity.delivered`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(webhookEvents) == 0 {
			return fmt.Errorf("at least one --event is required")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		sub, secret, err := c.CreateSubscription(ctx, args[0], webhookEvents...)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(map[string]any{"subscription": sub, "secret": secret})
		}
		fmt.Printf("Subscription %s created for %s\n", sub.ID, strings.Join(sub.Events, ", "))
		fmt.Printf("Signing secret (shown once): %s\n", secret)
		return nil
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your organization's subscriptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		subs, err := c.ListSubscriptions(ctx)
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return printJSON(subs)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tEVENTS\tACTIVE")
		for _, s := range subs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.ID, s.URL, strings.Join(s.Events, ","), s.Active)
		}
		return w.Flush()
	},
}

var webhookRemoveCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete a subscription",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		if err := c.DeleteSubscription(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Subscription %s deleted\n", args[0])
		return nil
	},
}

func init() {
	webhookAddCmd.Flags().StringArrayVar(&webhookEvents, "event", nil,
		"event type (repeatable): commodity.issued, commodity.auctioned, commodity.traded, commodity.delivered, ledger.audit_failed")
	webhookCmd.AddCommand(webhookAddCmd, webhookListCmd, webhookRemoveCmd)
}
