package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/algointent/walletcore/internal/version"
)

// versionCmd prints build information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Show the version, commit and Go toolchain walletcore was built with.`,
	Example: `  walletcore version
  walletcore version -o json`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		info := version.Get()
		return formatter.Render(info, func(w io.Writer) error {
			outln(w, info.String())
			return nil
		})
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.GroupID = "config"
}
