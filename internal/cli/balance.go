package cli

import (
	"github.com/spf13/cobra"
)

// balanceCmd shows the connected account's balance.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show ALGO balance and asset holdings",
	Long: `Fetch the connected account's ALGO balance and asset holdings from the
configured algod node.`,
	Example: `  walletcore balance
  walletcore balance -o json`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.GroupID = "wallet"
}

func runBalance(cmd *cobra.Command, _ []string) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	return withApp(func(a *app) error {
		bal, err := a.wallets.Balance(ctx, userID)
		if err != nil {
			return err
		}
		return renderBalance(formatter, bal)
	})
}
