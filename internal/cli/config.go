package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/algointent/walletcore/internal/config"
	"github.com/algointent/walletcore/internal/output"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify walletcore configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.walletcore/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  walletcore config init
  walletcore config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration, after environment variables and
flags are applied. The algod token is masked.`,
	Example: `  walletcore config show
  walletcore config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value by its dotted path.`,
	Example: `  walletcore config get ledger.algod_url
  walletcore config get security.max_attempts`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its dotted path. The file is
validated before it is written.`,
	Example: `  walletcore config set ledger.network mainnet
  walletcore config set security.session_timeout_minutes 60
  walletcore config set storage.backend leveldb`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.GroupID = "config"
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return walleterr.WithSuggestion(
			walleterr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - ledger.network / ledger.algod_url: the Algorand node to use")
	outln(w, "  - storage.backend: file or leveldb")
	outln(w, "  - security.*: session timeout, operation window and password attempts")
	outln(w, "  - encryption.scheme: scrypt or argon2id for new wallets")
	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	view := *cfg
	view.Ledger.AlgodToken = maskToken(view.Ledger.AlgodToken)
	return formatter.Render(&view, func(w io.Writer) error {
		data, err := yaml.Marshal(&view)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	tree, err := configTree(cfg)
	if err != nil {
		return err
	}
	node, err := lookup(tree, args[0])
	if err != nil {
		return err
	}
	if args[0] == "ledger.algod_token" {
		outln(cmd.OutOrStdout(), maskToken(fmt.Sprint(node)))
		return nil
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	out(cmd.OutOrStdout(), "%s", data)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]
	configPath := config.Path(cfg.Home)

	current, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	tree, err := configTree(current)
	if err != nil {
		return err
	}
	if err := assign(tree, path, value); err != nil {
		return err
	}

	data, err := yaml.Marshal(tree)
	if err != nil {
		return err
	}
	updated := config.Defaults()
	if err := yaml.Unmarshal(data, updated); err != nil {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"path": path, "value": value})
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := config.Save(updated, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	output.Success(cmd.OutOrStdout(), "Set %s = %s", path, value)
	return nil
}

// configTree converts c into nested maps keyed by YAML field names.
func configTree(c *config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// lookup walks a dotted path through tree.
func lookup(tree map[string]any, path string) (any, error) {
	var node any = tree
	walked := ""
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, unknownKey(path, nil)
		}
		next, ok := m[part]
		if !ok {
			return nil, unknownKey(path, prefixed(walked, m))
		}
		walked = joinPath(walked, part)
		node = next
	}
	return node, nil
}

// assign stores value at a dotted path that must already exist as a leaf.
func assign(tree map[string]any, path, value string) error {
	parts := strings.Split(path, ".")
	parent := tree
	walked := ""
	for _, part := range parts[:len(parts)-1] {
		next, ok := parent[part].(map[string]any)
		if !ok {
			return unknownKey(path, prefixed(walked, parent))
		}
		walked = joinPath(walked, part)
		parent = next
	}
	leaf := parts[len(parts)-1]
	existing, ok := parent[leaf]
	if !ok {
		return unknownKey(path, prefixed(walked, parent))
	}
	if _, isSection := existing.(map[string]any); isSection {
		return walleterr.WithDetails(walleterr.ErrValidation, map[string]string{"path": path, "reason": "not a single value"})
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil || parsed == nil {
		parsed = value
	}
	if _, isString := existing.(string); isString {
		parsed = value
	}
	parent[leaf] = parsed
	return nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// prefixed lists the keys of m as full dotted paths.
func prefixed(prefix string, m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, joinPath(prefix, k))
	}
	sort.Strings(keys)
	return keys
}

// unknownKey reports an unknown config path with the closest known key.
func unknownKey(path string, candidates []string) error {
	err := walleterr.WithDetails(walleterr.ErrValidation, map[string]string{"path": path, "reason": "unknown configuration key"})
	best, bestDist := "", 4
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(path, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best != "" {
		return walleterr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", best))
	}
	return err
}

// maskToken keeps the first four characters of a secret.
func maskToken(token string) string {
	switch {
	case token == "":
		return "(not configured)"
	case len(token) >= 8:
		return token[:4] + "..."
	default:
		return "***..."
	}
}
