package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/AuctionLedger/internal/identity"
	"github.com/jmerrifield20/AuctionLedger/pkg/client"
	"github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile      string
	serverURL    string
	bearerToken  string
	clientID     string
	mspID        string
	outputFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "auction",
	Short: "Commodity auction ledger CLI",
	Long: `auction is the command-line interface for the commodity auction ledger.

It issues commodities, moves them through auction, trade and delivery, and
inspects their transaction history.

Settings are read from ~/.auction/config.yaml (server_url, token, client_id,
msp_id) and AUCTION_* environment variables; flags take precedence.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".auction"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("auction")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if bearerToken == "" {
			bearerToken = viper.GetString("token")
		}
		if clientID == "" {
			clientID = viper.GetString("client_id")
		}
		if mspID == "" {
			mspID = viper.GetString("msp_id")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.auction/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "client token")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "client ID (servers without token auth)")
	rootCmd.PersistentFlags().StringVar(&mspID, "msp-id", "", "organization MSP ID (servers without token auth)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")

	rootCmd.AddCommand(issueCmd, getCmd, listCmd, historyCmd, auctionCmd, buyCmd, deliverCmd, ledgerCmd, webhookCmd, tokenCmd, versionCmd)
}

// newClient builds an SDK client from the resolved settings.
func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if bearerToken != "" {
		opts = append(opts, client.WithBearerToken(bearerToken))
	}
	if clientID != "" && mspID != "" {
		opts = append(opts, client.WithClientIdentity(clientID, mspID))
	}
	return client.New(serverURL, opts...)
}

// commodityArgs accepts either "ISSUER ITEM" or a composite key "ISSUER:ITEM".
func commodityArgs(args []string) (issuer, item string, err error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	parts := ledgerstate.SplitKey(args[0])
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected ISSUER ITEM or ISSUER%sITEM, got %q", ledgerstate.Separator, args[0])
	}
	return parts[0], parts[1], nil
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// ── output ───────────────────────────────────────────────────────────────────

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCommodity(cm *client.Commodity) error {
	if outputFormat == "json" {
		return printJSON(cm)
	}
	fmt.Printf("Key:       %s\n", cm.Key)
	fmt.Printf("State:     %s\n", cm.CurrentState)
	fmt.Printf("Owner:     %s (%s)\n", cm.Owner, cm.OwnerOrg)
	fmt.Printf("Face:      %d\n", cm.FaceValue)
	if cm.IssueDateTime != "" {
		fmt.Printf("Issued:    %s\n", cm.IssueDateTime)
	}
	if cm.MaturityDateTime != "" {
		fmt.Printf("Matures:   %s\n", cm.MaturityDateTime)
	}
	return nil
}

func printCommodities(list []client.Commodity) error {
	if outputFormat == "json" {
		return printJSON(list)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSTATE\tOWNER\tORG\tFACE")
	for _, cm := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", cm.Key, cm.CurrentState, cm.Owner, cm.OwnerOrg, cm.FaceValue)
	}
	return w.Flush()
}

func printEntries(entries []client.LedgerEntry) error {
	if outputFormat == "json" {
		return printJSON(entries)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDX\tTIME\tACTION\tACTOR\tTX")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Index, e.Timestamp.Format(time.RFC3339), e.Action, e.Actor, e.TxID)
	}
	return w.Flush()
}

// ── issue ────────────────────────────────────────────────────────────────────

var (
	issueIssueDate    string
	issueMaturityDate string
	issueFaceValue    int64
)

var issueCmd = &cobra.Command{
	Use:   "issue ISSUER ITEM",
	Short: "Issue a new commodity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		cm, err := c.Issue(ctx, client.IssueRequest{
			Issuer:           args[0],
			ItemNumber:       args[1],
			IssueDateTime:    issueIssueDate,
			MaturityDateTime: issueMaturityDate,
			FaceValue:        issueFaceValue,
		})
		if err != nil {
			return fmt.Errorf("issue: %w", err)
		}
		return printCommodity(cm)
	},
}

func init() {
	issueCmd.Flags().StringVar(&issueIssueDate, "issued", "", "issue date/time")
	issueCmd.Flags().StringVar(&issueMaturityDate, "matures", "", "maturity date/time")
	issueCmd.Flags().Int64Var(&issueFaceValue, "face-value", 0, "face value in minor units")
}

// ── get / list / history ─────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get ISSUER ITEM | ISSUER:ITEM",
	Short: "Show a commodity",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, item, err := commodityArgs(args)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		cm, err := c.Get(ctx, issuer, item)
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		return printCommodity(cm)
	},
}

var listCmd = &cobra.Command{
	Use:   "list ISSUER",
	Short: "List the commodities issued by ISSUER",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		list, err := c.List(ctx, args[0])
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		return printCommodities(list)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history ISSUER ITEM | ISSUER:ITEM",
	Short: "Show the transactions committed on a commodity",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, item, err := commodityArgs(args)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		entries, err := c.History(ctx, issuer, item)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		return printEntries(entries)
	},
}

// ── auction / buy / deliver ──────────────────────────────────────────────────

var auctionCmd = &cobra.Command{
	Use:   "auction ISSUER ITEM | ISSUER:ITEM",
	Short: "Put a submitted commodity up for auction",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, item, err := commodityArgs(args)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		cm, err := c.Auction(ctx, issuer, item)
		if err != nil {
			return fmt.Errorf("auction: %w", err)
		}
		return printCommodity(cm)
	},
}

var (
	buyCurrentOwner string
	buyNewOwner     string
	buyPrice        int64
	buyDate         string
)

var buyCmd = &cobra.Command{
	Use:   "buy ISSUER ITEM | ISSUER:ITEM",
	Short: "Buy an auctioned or trading commodity",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, item, err := commodityArgs(args)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		cm, err := c.Buy(ctx, issuer, item, client.BuyRequest{
			CurrentOwner:     buyCurrentOwner,
			NewOwner:         buyNewOwner,
			Price:            buyPrice,
			PurchaseDateTime: buyDate,
		})
		if err != nil {
			return fmt.Errorf("buy: %w", err)
		}
		return printCommodity(cm)
	},
}

func init() {
	buyCmd.Flags().StringVar(&buyCurrentOwner, "from", "", "current owner, as the ledger records it")
	buyCmd.Flags().StringVar(&buyNewOwner, "to", "", "new owner")
	buyCmd.Flags().Int64Var(&buyPrice, "price", 0, "purchase price in minor units")
	buyCmd.Flags().StringVar(&buyDate, "at", "", "purchase date/time")
	_ = buyCmd.MarkFlagRequired("from")
	_ = buyCmd.MarkFlagRequired("to")
}

var deliverDate string

var deliverCmd = &cobra.Command{
	Use:   "deliver ISSUER ITEM | ISSUER:ITEM",
	Short: "Take delivery of a trading commodity",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuer, item, err := commodityArgs(args)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		cm, err := c.Deliver(ctx, issuer, item, client.DeliverRequest{DeliveryDateTime: deliverDate})
		if err != nil {
			return fmt.Errorf("deliver: %w", err)
		}
		return printCommodity(cm)
	},
}

func init() {
	deliverCmd.Flags().StringVar(&deliverDate, "at", "", "delivery date/time")
}

// ── ledger ───────────────────────────────────────────────────────────────────

var ledgerVerify bool

var ledgerCmd = &cobra.Command{
	Use:   "ledger [IDX]",
	Short: "Show the transaction log tip, one entry, or verify the chain",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		switch {
		case ledgerVerify:
			ok, reason, err := c.VerifyLedger(ctx)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			if !ok {
				return fmt.Errorf("ledger chain is broken: %s", reason)
			}
			fmt.Println("ledger chain verified")
			return nil
		case len(args) == 1:
			var idx int
			if _, err := fmt.Sscan(args[0], &idx); err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			e, err := c.LedgerEntry(ctx, idx)
			if err != nil {
				return fmt.Errorf("ledger entry: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(e)
			}
			return printEntries([]client.LedgerEntry{*e})
		default:
			st, err := c.Ledger(ctx)
			if err != nil {
				return fmt.Errorf("ledger: %w", err)
			}
			if outputFormat == "json" {
				return printJSON(st)
			}
			fmt.Printf("Entries: %d\nRoot:    %s\n", st.Entries, st.Root)
			return nil
		}
	},
}

func init() {
	ledgerCmd.Flags().BoolVar(&ledgerVerify, "verify", false, "walk the hash chain on the server")
}

// ── token ────────────────────────────────────────────────────────────────────

var (
	tokenKeyFile string
	tokenIssuer  string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token CLIENT_ID MSP_ID",
	Short: "Mint a client token with the server's signing key (operators only)",
	Long: `token signs a client token with the server's RSA key file. Run it on the
server host; the key file and issuer must match the server's identity.key_file
and identity.issuer settings.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := identity.LoadOrCreateKey(tokenKeyFile)
		if err != nil {
			return err
		}
		issuer := tokenIssuer
		if issuer == "" {
			issuer = strings.TrimRight(serverURL, "/")
		}
		tok, err := identity.NewTokenIssuer(key, issuer, tokenTTL).Issue(identity.Caller{ID: args[0], MSPID: args[1]})
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenKeyFile, "key-file", "keys/signing.key", "server signing key (PEM)")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "", "token issuer (default: --server URL)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the auction CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("auction %s\n", version)
	},
}
