package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"invoice-analytics/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

const defaultHost = "http://localhost:8080"

// state holds the settings resolved from flags, environment and profile,
// shared by every subcommand.
type state struct {
	host         string
	analyticsURL string
	output       string
	profile      string
	client       *Client
}

// Execute runs the CLI.
func Execute() int {
	return execute(newRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(rootCmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var silent silentError
	if errors.As(err, &silent) {
		return silent.code
	}
	output, _ := rootCmd.PersistentFlags().GetString("output")
	if output == "json" {
		errObj := map[string]any{
			"error": err.Error(),
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			errObj["http_status"] = apiErr.HTTPStatus
		}
		_ = printJSON(stdout, errObj)
	} else {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

func newRootCmd() *cobra.Command {
	st := &state{client: NewClient(defaultHost)}

	rootCmd := &cobra.Command{
		Use:           "invoicectl",
		Short:         "Invoice analytics CLI",
		Long:          "Command-line interface for the invoice analytics dashboard and the chat-with-data service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if errors.Is(err, ErrNoConfig) {
				cfg, err = defaultUserConfig(), nil
			}
			if err != nil {
				return err
			}
			p, err := cfg.ActiveProfile(st.profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			flags := cmd.Flags()
			st.host = resolve(flags.Changed("host"), st.host, "INVOICE_HOST", p.Host)
			st.analyticsURL = resolve(flags.Changed("analytics-url"), st.analyticsURL, "INVOICE_ANALYTICS_URL", p.AnalyticsURL)
			st.output = resolve(flags.Changed("output"), st.output, "INVOICE_OUTPUT", p.Output)

			if err := validateOutputFormat(st.output); err != nil {
				return err
			}
			if err := validateServiceURL(st.host); err != nil {
				return err
			}
			if err := validateServiceURL(st.analyticsURL); err != nil {
				return fmt.Errorf("analytics url: %w", err)
			}
			st.client.SetBaseURL(st.host)
			return nil
		},
	}

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&st.host, "host", defaultHost, "Dashboard server URL")
	pf.StringVar(&st.analyticsURL, "analytics-url", config.DefaultAnalyticsURL, "Analytics (chat-with-data) service URL")
	pf.StringVarP(&st.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVarP(&st.profile, "profile", "p", "", "Config profile to use")

	rootCmd.AddCommand(newStatsCmd(st))
	rootCmd.AddCommand(newVendorsCmd(st))
	rootCmd.AddCommand(newTrendsCmd(st))
	rootCmd.AddCommand(newCategoriesCmd(st))
	rootCmd.AddCommand(newCashOutflowCmd(st))
	rootCmd.AddCommand(newInvoicesCmd(st))
	rootCmd.AddCommand(newDashboardCmd(st))
	rootCmd.AddCommand(newAskCmd(st))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())

	// Shell completions
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// normalizeFlagName accepts underscores in flag names, so --analytics_url
// works like --analytics-url.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// resolve picks the flag value when it was set explicitly, then the
// environment variable, then the profile value, then the flag default.
func resolve(changed bool, flagVal, envKey, profileVal string) string {
	if changed {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if profileVal != "" {
		return profileVal
	}
	return flagVal
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
