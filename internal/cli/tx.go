package cli

import (
	"bufio"
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/algointent/walletcore/internal/service/approval"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// txFlags are shared by every command that stages an operation.
type txFlags struct {
	to            string
	amount        string
	recipients    []string
	assetID       uint64
	name          string
	unitName      string
	supply        uint64
	description   string
	url           string
	dryRun        bool
	yes           bool
	passwordStdin bool
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var tx txFlags

func addApprovalFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&tx.dryRun, "dry-run", false, "build and check the operation without signing")
	fs.BoolVarP(&tx.yes, "yes", "y", false, "skip the confirmation question")
	fs.BoolVar(&tx.passwordStdin, "password-stdin", false, "read the wallet password from stdin")
}

func addRecipientsFlag(fs *pflag.FlagSet) {
	fs.StringArrayVar(&tx.recipients, "to", nil, "recipient ADDRESS or ADDRESS=AMOUNT (repeat 2 to 16 times)")
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send ALGO to one address",
	Long: `Send ALGO to one address. The operation summary is shown before the
wallet password is requested.`,
	Example: `  walletcore send --to ADDRESS --amount 1.5
  walletcore send --to ADDRESS --amount 1.5 --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOperation(cmd, approval.Request{Kind: approval.KindSendAlgo, Recipient: tx.to, Amount: tx.amount})
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendMultiCmd = &cobra.Command{
	Use:   "send-multi",
	Short: "Send ALGO to several addresses in one atomic group",
	Long: `Send ALGO to 2 to 16 addresses in one atomic group: either every
transfer is confirmed or none is.

Give every recipient an amount, or give --amount as a total that is split
evenly with the remainder going to the last recipient.`,
	Example: `  walletcore send-multi --to ADDR1 --to ADDR2 --to ADDR3 --amount 10
  walletcore send-multi --to ADDR1=1.5 --to ADDR2=2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOperation(cmd, approval.Request{Kind: approval.KindSendAlgoMulti, Amount: tx.amount, Recipients: parseRecipients(tx.recipients)})
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Create, send and manage assets",
	Long:  `Create NFTs, transfer assets and manage asset opt-ins.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var assetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an NFT",
	Long: `Create a new asset with zero decimals. The unit name defaults to the
initials of the name and the supply defaults to 1.`,
	Example: `  walletcore asset create --name "Sunset Over Lake" --url https://example.com/sunset.png`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOperation(cmd, approval.Request{
			Kind:        approval.KindCreateNFT,
			Name:        tx.name,
			UnitName:    tx.unitName,
			Supply:      tx.supply,
			Description: tx.description,
			URL:         tx.url,
		})
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var assetSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an asset to one address",
	Long: `Send units of an asset. The amount defaults to 1 and is given in whole
units, scaled by the asset's decimals.`,
	Example: `  walletcore asset send --asset 31566704 --to ADDRESS --amount 2`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOperation(cmd, approval.Request{Kind: approval.KindSendNFT, AssetID: tx.assetID, Recipient: tx.to, Amount: tx.amount})
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var assetSendMultiCmd = &cobra.Command{
	Use:   "send-multi",
	Short: "Send an asset to several addresses in one atomic group",
	Long: `Send units of an asset to 2 to 16 addresses in one atomic group.
Recipients without an amount get one unit each, or an even share of --amount.`,
	Example: `  walletcore asset send-multi --asset 31566704 --to ADDR1 --to ADDR2
  walletcore asset send-multi --asset 31566704 --to ADDR1=3 --to ADDR2=1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOperation(cmd, approval.Request{Kind: approval.KindSendNFTMulti, AssetID: tx.assetID, Amount: tx.amount, Recipients: parseRecipients(tx.recipients)})
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var assetOptInCmd = &cobra.Command{
	Use:   "optin",
	Short: "Opt in to an asset so the account can receive it",
	Long: `Send a zero-amount transfer of the asset to yourself. This raises the
account's minimum balance by 0.1 ALGO.`,
	Example: `  walletcore asset optin --asset 31566704`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOperation(cmd, approval.Request{Kind: approval.KindOptIn, AssetID: tx.assetID})
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var assetOptOutCmd = &cobra.Command{
	Use:   "optout",
	Short: "Opt out of an asset with a zero balance",
	Long: `Opt out of an asset and recover its minimum balance. The account must
hold none of the asset.`,
	Example: `  walletcore asset optout --asset 31566704`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOperation(cmd, approval.Request{Kind: approval.KindOptOut, AssetID: tx.assetID})
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd, sendMultiCmd, assetCmd)
	for _, c := range []*cobra.Command{sendCmd, sendMultiCmd, assetCmd} {
		c.GroupID = "tx"
	}
	assetCmd.AddCommand(assetCreateCmd, assetSendCmd, assetSendMultiCmd, assetOptInCmd, assetOptOutCmd)

	for _, c := range []*cobra.Command{sendCmd, sendMultiCmd, assetCreateCmd, assetSendCmd, assetSendMultiCmd, assetOptInCmd, assetOptOutCmd} {
		addApprovalFlags(c.Flags())
	}

	sendCmd.Flags().StringVar(&tx.to, "to", "", "recipient address (required)")
	sendCmd.Flags().StringVar(&tx.amount, "amount", "", "amount in ALGO (required)")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")

	addRecipientsFlag(sendMultiCmd.Flags())
	sendMultiCmd.Flags().StringVar(&tx.amount, "amount", "", "total ALGO split across recipients")

	assetCreateCmd.Flags().StringVar(&tx.name, "name", "", "asset name (required)")
	assetCreateCmd.Flags().StringVar(&tx.unitName, "unit", "", "unit name (default: initials of the name)")
	assetCreateCmd.Flags().Uint64Var(&tx.supply, "supply", 0, "total supply (default 1)")
	assetCreateCmd.Flags().StringVar(&tx.description, "description", "", "description stored in the note")
	assetCreateCmd.Flags().StringVar(&tx.url, "url", "", "link to the asset media")
	_ = assetCreateCmd.MarkFlagRequired("name")

	for _, c := range []*cobra.Command{assetSendCmd, assetSendMultiCmd, assetOptInCmd, assetOptOutCmd} {
		c.Flags().Uint64Var(&tx.assetID, "asset", 0, "asset id (required)")
		_ = c.MarkFlagRequired("asset")
	}
	assetSendCmd.Flags().StringVar(&tx.to, "to", "", "recipient address (required)")
	assetSendCmd.Flags().StringVar(&tx.amount, "amount", "", "units to send (default 1)")
	_ = assetSendCmd.MarkFlagRequired("to")
	addRecipientsFlag(assetSendMultiCmd.Flags())
	assetSendMultiCmd.Flags().StringVar(&tx.amount, "amount", "", "total units split across recipients (default 1 each)")
}

// parseRecipients turns ADDRESS or ADDRESS=AMOUNT arguments into recipients.
func parseRecipients(args []string) []approval.Recipient {
	out := make([]approval.Recipient, 0, len(args))
	for _, arg := range args {
		addr, amt, _ := strings.Cut(strings.TrimSpace(arg), "=")
		out = append(out, approval.Recipient{Address: strings.TrimSpace(addr), Amount: strings.TrimSpace(amt)})
	}
	return out
}

// passwordProvider picks how the password is collected.
func passwordProvider(cmd *cobra.Command) (approval.PasswordProvider, error) {
	if tx.passwordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err != nil {
				return nil, walleterr.WithCause(walleterr.ErrValidation, err)
			}
			return nil, walleterr.WithDetails(walleterr.ErrValidation, map[string]string{"reason": "empty password on stdin"})
		}
		return approval.Synchronous(line), nil
	}
	if tx.yes {
		return approval.Prompt(func(_ context.Context, summary approval.Summary) (string, error) {
			outln(cmd.ErrOrStderr(), summary.String())
			return promptPasswordFn("Wallet password: ")
		}), nil
	}
	return interactiveApproval(cmd.ErrOrStderr()), nil
}

// runOperation stages req for the current user and renders the result.
func runOperation(cmd *cobra.Command, req approval.Request) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}
	req.DryRun = tx.dryRun
	pw, err := passwordProvider(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	return withApp(func(a *app) error {
		res, err := a.wallets.Approvals().Stage(ctx, userID, req, pw)
		if err != nil {
			return err
		}
		if err := renderResult(formatter, res); err != nil {
			return err
		}
		return resultErr(res)
	})
}

// resultErr converts a rejection into an error so the exit code reflects it.
func resultErr(res approval.Result) error {
	r, ok := res.(approval.Rejected)
	if !ok {
		return nil
	}
	switch r.Reason {
	case approval.ReasonLockedOut:
		return walleterr.ErrLockedOut
	case approval.ReasonIncorrectPassword:
		return walleterr.ErrAuthentication
	case approval.ReasonNotConfirmed:
		return walleterr.WithDetails(walleterr.ErrNotConfirmedInTime, map[string]string{"tx_id": r.TxID})
	default:
		return walleterr.WithDetails(walleterr.ErrOperationRejected, map[string]string{"reason": string(r.Reason)})
	}
}
