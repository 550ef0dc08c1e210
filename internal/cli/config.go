package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/output"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify Tipjar configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.tipjar/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  tipjar config init
  tipjar config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after environment overrides.`,
	Example: `  tipjar config show
  tipjar config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.`,
	Example: `  tipjar config get network.rpc
  tipjar config get policy.min_tip
  tipjar config get timeouts.signer_round_trip`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree. The new
configuration is validated before the file is written.`,
	Example: `  tipjar config set network.rpc https://api.devnet.solana.com
  tipjar config set network.cluster devnet
  tipjar config set policy.quick_amounts 0.01,0.05,0.1
  tipjar config set timeouts.signer_round_trip 2m`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configCmd.GroupID = "config"
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return tjerr.WithSuggestion(
			tjerr.ErrGeneral,
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
	outln(w, "  - network.rpc: Your ledger RPC endpoint")
	outln(w, "  - network.cluster: Cluster shown in explorer links (mainnet-beta/devnet/testnet)")
	outln(w, "  - signer.bridge_url: WebSocket address of the wallet signer bridge")
	outln(w, "  - policy.quick_amounts: Preset tip amounts")
	outln(w, "  - logging.level: Log level (off/error/warn/info/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if formatter != nil && formatter.Format() == output.FormatJSON {
		return output.NewFormatter(output.FormatJSON, w).Print(configView(cfg))
	}
	return displayConfigText(w, cfg)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	path := args[0]

	value, err := getConfigValue(cfg, path)
	if err != nil {
		return tjerr.WithSuggestion(err, fmt.Sprintf("configuration path '%s' not found", path))
	}

	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]

	if _, err := getConfigValue(cfg, path); err != nil {
		return tjerr.WithSuggestion(err, fmt.Sprintf("configuration path '%s' not found", path))
	}

	// Environment overrides must not leak into the file.
	configPath := config.Path(cfg.Home)
	currentCfg, err := config.Load(configPath)
	if err != nil {
		if !tjerr.Is(err, tjerr.ErrConfigNotFound) {
			return err
		}
		currentCfg = config.Defaults()
		currentCfg.Home = cfg.Home
	}

	if err := setConfigValue(currentCfg, path, value); err != nil {
		return err
	}
	if err := currentCfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(currentCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

func unknownKey(path string) error {
	return tjerr.WithDetails(tjerr.ErrUnknownConfigKey, map[string]string{"key": path})
}

func invalidValue(path, value, valid string) error {
	return tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"key": path, "value": value, "valid": valid})
}

// getConfigValue retrieves a value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	section, key, found := strings.Cut(path, ".")
	if !found {
		if section == "home" {
			return c.Home, nil
		}
		return "", unknownKey(path)
	}

	switch section {
	case "network":
		return getNetworkValue(c, path, key)
	case "policy":
		return getPolicyValue(c, path, key)
	case "timeouts":
		return getTimeoutValue(c, path, key)
	case "signer":
		return getSignerValue(c, path, key)
	case "confirm":
		if key == "enabled" {
			return strconv.FormatBool(c.Confirm.Enabled), nil
		}
	case "server":
		if key == "listen" {
			return c.Server.Listen, nil
		}
	case "output":
		switch key {
		case "default_format":
			return c.Output.DefaultFormat, nil
		case "color":
			return c.Output.Color, nil
		}
	case "logging":
		return getLoggingValue(c, path, key)
	}
	return "", unknownKey(path)
}

func getNetworkValue(c *config.Config, path, key string) (string, error) {
	n := c.Network
	switch key {
	case "rpc":
		return n.RPC, nil
	case "cluster":
		return n.Cluster, nil
	case "explorer_url":
		return n.ExplorerURL, nil
	case "commitment":
		return n.Commitment, nil
	case "rate_per_second":
		return strconv.FormatFloat(n.RatePerSecond, 'f', -1, 64), nil
	case "burst":
		return strconv.Itoa(n.Burst), nil
	default:
		return "", unknownKey(path)
	}
}

func getPolicyValue(c *config.Config, path, key string) (string, error) {
	p := c.Policy
	switch key {
	case "min_tip":
		return p.MinTip, nil
	case "decimals":
		return strconv.Itoa(p.Decimals), nil
	case "fee_lamports":
		return strconv.FormatUint(p.FeeLamports, 10), nil
	case "symbol":
		return p.Symbol, nil
	case "quick_amounts":
		return strings.Join(p.QuickAmounts, ","), nil
	default:
		return "", unknownKey(path)
	}
}

func getTimeoutValue(c *config.Config, path, key string) (string, error) {
	d, ok := timeoutField(c, key)
	if !ok {
		return "", unknownKey(path)
	}
	return d.String(), nil
}

func timeoutField(c *config.Config, key string) (*time.Duration, bool) {
	switch key {
	case "network":
		return &c.Timeouts.Network, true
	case "signer_round_trip":
		return &c.Timeouts.SignerRoundTrip, true
	case "confirmation":
		return &c.Timeouts.Confirmation, true
	case "poll_interval":
		return &c.Timeouts.PollInterval, true
	default:
		return nil, false
	}
}

func getSignerValue(c *config.Config, path, key string) (string, error) {
	s := c.Signer
	switch key {
	case "bridge_url":
		return s.BridgeURL, nil
	case "chain":
		return s.Chain, nil
	case "app_name":
		return s.AppIdentity.Name, nil
	case "app_uri":
		return s.AppIdentity.URI, nil
	case "app_icon":
		return s.AppIdentity.Icon, nil
	default:
		return "", unknownKey(path)
	}
}

func getLoggingValue(c *config.Config, path, key string) (string, error) {
	switch key {
	case "level":
		return c.Logging.Level, nil
	case "file":
		return c.Logging.File, nil
	case "max_size_mb":
		return strconv.Itoa(c.Logging.MaxSizeMB), nil
	case "max_age_days":
		return strconv.Itoa(c.Logging.MaxAgeDays), nil
	default:
		return "", unknownKey(path)
	}
}

// setConfigValue sets a value in the config using dot notation. The path
// must already be known to getConfigValue.
func setConfigValue(c *config.Config, path, value string) error {
	section, key, _ := strings.Cut(path, ".")
	switch section {
	case "home":
		c.Home = value
		return nil
	case "network":
		return setNetworkValue(c, path, key, value)
	case "policy":
		return setPolicyValue(c, path, key, value)
	case "timeouts":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return invalidValue(path, value, "a positive duration such as 30s or 5m")
		}
		field, _ := timeoutField(c, key)
		*field = d
		return nil
	case "signer":
		return setSignerValue(c, key, value)
	case "confirm":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalidValue(path, value, "true or false")
		}
		c.Confirm.Enabled = b
		return nil
	case "server":
		c.Server.Listen = value
		return nil
	case "output":
		return setOutputValue(c, path, key, value)
	case "logging":
		return setLoggingValue(c, path, key, value)
	}
	return unknownKey(path)
}

func setNetworkValue(c *config.Config, path, key, value string) error {
	switch key {
	case "rpc":
		c.Network.RPC = config.SanitizeURL(value)
	case "cluster":
		c.Network.Cluster = value
	case "explorer_url":
		c.Network.ExplorerURL = config.SanitizeURL(value)
	case "commitment":
		c.Network.Commitment = value
	case "rate_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return invalidValue(path, value, "a non-negative number")
		}
		c.Network.RatePerSecond = f
	case "burst":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return invalidValue(path, value, "a non-negative integer")
		}
		c.Network.Burst = n
	}
	return nil
}

func setPolicyValue(c *config.Config, path, key, value string) error {
	switch key {
	case "min_tip":
		c.Policy.MinTip = value
	case "decimals":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalidValue(path, value, "an integer between 0 and 18")
		}
		c.Policy.Decimals = n
	case "fee_lamports":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return invalidValue(path, value, "a non-negative integer")
		}
		c.Policy.FeeLamports = n
	case "symbol":
		c.Policy.Symbol = value
	case "quick_amounts":
		var amounts []string
		for _, a := range strings.Split(value, ",") {
			if a = strings.TrimSpace(a); a != "" {
				amounts = append(amounts, a)
			}
		}
		c.Policy.QuickAmounts = amounts
	}
	return nil
}

func setSignerValue(c *config.Config, key, value string) error {
	switch key {
	case "bridge_url":
		c.Signer.BridgeURL = config.SanitizeURL(value)
	case "chain":
		c.Signer.Chain = value
	case "app_name":
		c.Signer.AppIdentity.Name = value
	case "app_uri":
		c.Signer.AppIdentity.URI = value
	case "app_icon":
		c.Signer.AppIdentity.Icon = value
	}
	return nil
}

func setOutputValue(c *config.Config, path, key, value string) error {
	switch key {
	case "default_format":
		if value != "text" && value != "json" && value != "auto" {
			return invalidValue(path, value, "text, json, or auto")
		}
		c.Output.DefaultFormat = value
	case "color":
		if value != "auto" && value != "always" && value != "never" {
			return invalidValue(path, value, "auto, always, or never")
		}
		c.Output.Color = value
	}
	return nil
}

func setLoggingValue(c *config.Config, path, key, value string) error {
	switch key {
	case "level":
		level := config.ParseLogLevel(value)
		if level.String() != strings.ToLower(value) {
			return invalidValue(path, value, "off, error, warn, info, or debug")
		}
		c.Logging.Level = level.String()
	case "file":
		c.Logging.File = value
	case "max_size_mb", "max_age_days":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return invalidValue(path, value, "a non-negative integer")
		}
		if key == "max_size_mb" {
			c.Logging.MaxSizeMB = n
		} else {
			c.Logging.MaxAgeDays = n
		}
	}
	return nil
}

// configJSON is the JSON view of the configuration.
type configJSON struct {
	Version  int               `json:"version"`
	Home     string            `json:"home"`
	Network  map[string]string `json:"network"`
	Policy   map[string]string `json:"policy"`
	Timeouts map[string]string `json:"timeouts"`
	Signer   map[string]string `json:"signer"`
	Confirm  map[string]string `json:"confirm"`
	Server   map[string]string `json:"server"`
	Output   map[string]string `json:"output"`
	Logging  map[string]string `json:"logging"`
}

// configSections lists every settable key in display order.
//
//nolint:gochecknoglobals // static table
var configSections = []struct {
	name string
	keys []string
}{
	{"network", []string{"rpc", "cluster", "explorer_url", "commitment", "rate_per_second", "burst"}},
	{"policy", []string{"min_tip", "decimals", "fee_lamports", "symbol", "quick_amounts"}},
	{"timeouts", []string{"network", "signer_round_trip", "confirmation", "poll_interval"}},
	{"signer", []string{"bridge_url", "chain", "app_name", "app_uri", "app_icon"}},
	{"confirm", []string{"enabled"}},
	{"server", []string{"listen"}},
	{"output", []string{"default_format", "color"}},
	{"logging", []string{"level", "file", "max_size_mb", "max_age_days"}},
}

// sectionValues reads one section; URLs are sanitized for display.
func sectionValues(c *config.Config, section string, keys []string) map[string]string {
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := getConfigValue(c, section+"."+k)
		if err != nil {
			continue
		}
		if strings.HasSuffix(k, "url") || k == "rpc" {
			v = config.SanitizeURL(v)
		}
		values[k] = v
	}
	return values
}

func configView(c *config.Config) configJSON {
	view := configJSON{Version: c.Version, Home: c.Home}
	targets := map[string]*map[string]string{
		"network":  &view.Network,
		"policy":   &view.Policy,
		"timeouts": &view.Timeouts,
		"signer":   &view.Signer,
		"confirm":  &view.Confirm,
		"server":   &view.Server,
		"output":   &view.Output,
		"logging":  &view.Logging,
	}
	for _, s := range configSections {
		*targets[s.name] = sectionValues(c, s.name, s.keys)
	}
	return view
}

// displayConfigText shows the config in text format.
func displayConfigText(w io.Writer, c *config.Config) error {
	outln(w, "Configuration:")
	outln(w)
	out(w, "  home: %s\n", c.Home)
	for _, s := range configSections {
		outln(w)
		out(w, "  %s:\n", s.name)
		values := sectionValues(c, s.name, s.keys)
		for _, k := range s.keys {
			v := values[k]
			if v == "" {
				v = "(not configured)"
			}
			out(w, "    %s: %s\n", k, v)
		}
	}
	return nil
}
