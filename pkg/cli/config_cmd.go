package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage invoicectl profiles",
		Long: "Profiles store per-environment defaults for --host, --analytics-url and --output.\n" +
			"Flags and INVOICE_* environment variables take precedence over the active profile.",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSetProfileCmd(), newConfigUseProfileCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"view"},
		Short:   "List the saved profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if errors.Is(err, ErrNoConfig) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No configuration found at %s; create one with 'invoicectl config set-profile'.\n", ConfigPath())
			}
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			printTable(cmd.OutOrStdout(), []string{"active", "profile", "host", "analytics url", "output"}, profileRows(cfg))
			return nil
		},
	}
}

func profileRows(cfg *UserConfig) [][]string {
	rows := make([][]string, 0, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		p := cfg.Profiles[name]
		marker := ""
		if name == cfg.CurrentProfile {
			marker = "*"
		}
		rows = append(rows, []string{marker, name, p.Host, p.AnalyticsURL, p.Output})
	}
	return rows
}

// profileEdit holds the set-profile flags. Only flags the user passed are
// applied, so updating one field keeps the others.
type profileEdit struct {
	name string
	Profile
}

func (e *profileEdit) bind(fs *pflag.FlagSet) {
	fs.StringVar(&e.name, "name", "", "Profile name (required)")
	fs.StringVar(&e.Host, "host", "", "Dashboard server URL")
	fs.StringVar(&e.AnalyticsURL, "analytics-url", "", "Analytics service URL")
	fs.StringVar(&e.Output, "output", "", "Default output format (table or json)")
}

func (e *profileEdit) validate(fs *pflag.FlagSet) error {
	if e.name == "" {
		return errors.New("--name must not be empty")
	}
	if fs.Changed("host") {
		if err := validateServiceURL(e.Host); err != nil {
			return fmt.Errorf("host: %w", err)
		}
	}
	if fs.Changed("analytics-url") {
		if err := validateServiceURL(e.AnalyticsURL); err != nil {
			return fmt.Errorf("analytics url: %w", err)
		}
	}
	if fs.Changed("output") {
		return validateOutputFormat(e.Output)
	}
	return nil
}

func (e *profileEdit) apply(fs *pflag.FlagSet, p Profile) Profile {
	if fs.Changed("host") {
		p.Host = e.Host
	}
	if fs.Changed("analytics-url") {
		p.AnalyticsURL = e.AnalyticsURL
	}
	if fs.Changed("output") {
		p.Output = e.Output
	}
	return p
}

func newConfigSetProfileCmd() *cobra.Command {
	var edit profileEdit
	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create a profile or update fields of an existing one",
		Example: "  invoicectl config set-profile --name prod --host https://invoices.example.com\n" +
			"  invoicectl config set-profile --name prod --output json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := edit.validate(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := LoadUserConfig()
			if errors.Is(err, ErrNoConfig) {
				cfg, err = defaultUserConfig(), nil
			}
			if err != nil {
				return err
			}

			cfg.Profiles[edit.name] = edit.apply(cmd.Flags(), cfg.Profiles[edit.name])
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": edit.name,
					"path":    ConfigPath(),
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q to %s\n", edit.name, ConfigPath())
			return err
		},
	}
	edit.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newConfigUseProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Make a saved profile the default",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			cfg, err := LoadUserConfig()
			if err != nil || len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return cfg.ProfileNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Active profile is now %q\n", name)
			return err
		},
	}
}
