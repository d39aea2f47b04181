package cli

import (
	"github.com/spf13/cobra"

	"github.com/algointent/walletcore/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// statusQR draws the address as a QR code.
	statusQR bool
	// resetYes skips the confirmation of wallet reset.
	resetYes bool
)

// walletCmd is the parent command for wallet lifecycle operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the connected wallet",
	Long:  `Create, connect, inspect and disconnect the wallet bound to a user session.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet",
	Long: `Generate a new Algorand account and store its secret phrase encrypted
with your password.

The secret phrase is displayed once - write it down and store it offline.`,
	Example: `  walletcore wallet create --user alice`,
	Args:    cobra.NoArgs,
	RunE:    runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect an existing wallet from its secret phrase",
	Long: `Import an existing account from its 25-word secret phrase.

Connecting the wallet that is already connected replaces the stored record,
sets the new password and clears a password lockout.`,
	Example: `  walletcore wallet connect --user alice`,
	Args:    cobra.NoArgs,
	RunE:    runWalletConnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect the wallet and delete its session",
	Long: `Delete the stored session, including the encrypted secret phrase.
An operation waiting for a password is cancelled first.`,
	Example: `  walletcore wallet disconnect`,
	Args:    cobra.NoArgs,
	RunE:    runWalletDisconnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status and limits",
	Long: `Show the connected address, session expiry, remaining operations and
password attempts, and any operation waiting for a password.`,
	Example: `  walletcore wallet status --qr`,
	Args:    cobra.NoArgs,
	RunE:    runWalletStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear a password lockout",
	Long: `Clear the failed password counter of the connected wallet. Any pending
operation is discarded and has to be requested again.`,
	Example: `  walletcore wallet reset
  walletcore wallet reset --yes`,
	Args: cobra.NoArgs,
	RunE: runWalletReset,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.GroupID = "wallet"
	walletCmd.AddCommand(walletCreateCmd, walletConnectCmd, walletDisconnectCmd, walletStatusCmd, walletResetCmd)

	walletStatusCmd.Flags().BoolVar(&statusQR, "qr", false, "draw the address as a QR code")
	walletResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
}

func runWalletCreate(cmd *cobra.Command, _ []string) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}
	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	return withApp(func(a *app) error {
		created, err := a.wallets.Create(cmd.Context(), userID, password)
		if err != nil {
			return err
		}
		if !formatter.IsJSON() {
			output.Warn(cmd.ErrOrStderr(), "Anyone who sees the secret phrase controls the account.")
		}
		return renderCreated(formatter, created)
	})
}

func runWalletConnect(cmd *cobra.Command, _ []string) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}
	phrase, err := promptMnemonicFn()
	if err != nil {
		return err
	}
	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	return withApp(func(a *app) error {
		connected, err := a.wallets.Connect(cmd.Context(), userID, phrase, password)
		if err != nil {
			return err
		}
		msg := "Wallet connected: " + connected.Address
		if connected.Reconnected {
			msg = "Wallet reconnected: " + connected.Address
		}
		return output.FormatSuccess(cmd.OutOrStdout(), msg, formatter.Format())
	})
}

func runWalletDisconnect(cmd *cobra.Command, _ []string) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}
	return withApp(func(a *app) error {
		if err := a.wallets.Disconnect(cmd.Context(), userID); err != nil {
			return err
		}
		return output.FormatSuccess(cmd.OutOrStdout(), "Wallet disconnected.", formatter.Format())
	})
}

func runWalletStatus(cmd *cobra.Command, _ []string) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}
	return withApp(func(a *app) error {
		st, err := a.wallets.Status(cmd.Context(), userID)
		if err != nil {
			return err
		}
		return renderStatus(formatter, st, statusQR)
	})
}

func runWalletReset(cmd *cobra.Command, _ []string) error {
	userID, err := currentUser()
	if err != nil {
		return err
	}
	if !resetYes && !promptConfirmFn("Clear the lockout and discard any pending operation?") {
		return nil
	}
	return withApp(func(a *app) error {
		if err := a.wallets.ResetLockout(cmd.Context(), userID); err != nil {
			return err
		}
		return output.FormatSuccess(cmd.OutOrStdout(), "Lockout cleared.", formatter.Format())
	})
}
