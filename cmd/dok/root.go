package main

import (
	"github.com/brettbedarf/dok/adapters"
	"github.com/brettbedarf/dok/config"
	"github.com/brettbedarf/dok/controller"
	"github.com/brettbedarf/dok/internal/util"
	"github.com/brettbedarf/dok/tree"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	verbose    int
	serverURL  string
	remoteType string
	locale     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dok",
	Short: "Browse and edit a remote file tree",
	Long: `dok is a terminal client for a remote file tree served over HTTP.
It lists directories lazily, opens files in an editor buffer that is saved
automatically after a short pause, and creates, deletes and moves entries.

Running 'dok' without arguments starts the shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		util.InitializeLogger(cfg.LogLvl)
		logger := util.GetLogger("main")
		logger.Debug().
			Str("remote", cfg.RemoteType).
			Str("server", cfg.ServerURL).
			Msg("Configuration loaded")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return shellCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config override file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", config.InfoVerbose, "log verbosity between 1 (error) and 5 (trace)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", config.DefaultServerURL, "base URL of the file server")
	rootCmd.PersistentFlags().StringVar(&remoteType, "remote", config.DefaultRemoteType, "remote type: http or memory")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", config.DefaultLocale, "locale used to sort names")

	rootCmd.AddCommand(shellCmd, treeCmd)
}

// loadConfig layers the config file over the defaults and explicit flags
// over the file
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if cfgFile != "" {
		o, err := config.LoadConfigOverrideFile(cfgFile)
		if err != nil {
			return nil, err
		}
		override = o
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") || override.LogLvl == nil {
		override.LogLvl = util.Pointer(verbose)
	}
	if flags.Changed("server") {
		override.ServerURL = util.Pointer(serverURL)
	}
	if flags.Changed("remote") {
		override.RemoteType = util.Pointer(remoteType)
	}
	if flags.Changed("locale") {
		override.Locale = util.Pointer(locale)
	}

	c := config.NewConfig(override)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// newController builds the gateway named by the config and a controller over it
func newController(opts controller.Options) (*controller.Controller, error) {
	logger := util.GetLogger("main")

	adapters.RegisterBuiltins(nil)
	gw, err := adapters.NewGateway(cfg)
	if err != nil {
		return nil, err
	}

	tag, err := tree.ParseLocale(cfg.Locale)
	if err != nil {
		logger.Warn().Err(err).Str("locale", cfg.Locale).Msg("Invalid locale, sorting as English")
	}
	opts.Locale = tag
	opts.SaveDelay = cfg.SaveDelay()
	return controller.New(gw, opts), nil
}
