package cmds

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/cricket/pkg/inference/settings"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cricket",
		Short: "Multi-turn chat over interchangeable LLM providers, with persistent conversations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return initLogging(viper.GetString("log-level"))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML settings file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "cricket.db", "Path to the sqlite chat database")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider (openai or claude)")
	rootCmd.PersistentFlags().String("model", "", "Model identifier")
	rootCmd.PersistentFlags().String("user", "", "User id used to filter conversations")

	viper.SetEnvPrefix("CRICKET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(NewChatCmd())
	rootCmd.AddCommand(NewConversationsCmd())

	return rootCmd
}

func initLogging(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %s", level)
	}
	zerolog.SetGlobalLevel(parsed)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return nil
}

// loadStepSettings builds the effective settings: defaults, then the YAML
// config file, then flags, then API keys from the environment.
func loadStepSettings() (*settings.StepSettings, error) {
	stepSettings := settings.NewStepSettings()

	if configPath := viper.GetString("config"); configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open config file %s", configPath)
		}
		defer func() {
			_ = f.Close()
		}()

		stepSettings, err = settings.NewStepSettingsFromYAML(f)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse config file %s", configPath)
		}
	}

	if provider := viper.GetString("provider"); provider != "" {
		apiType := settings.ApiType(provider)
		stepSettings.Chat.ApiType = &apiType
		if viper.GetString("model") == "" {
			// switching provider without a model falls back to its default
			engine := settings.DefaultClaudeEngine
			if apiType == settings.ApiTypeOpenAI {
				engine = settings.DefaultOpenAIEngine
			}
			stepSettings.Chat.Engine = &engine
		}
	}
	if model := viper.GetString("model"); model != "" {
		stepSettings.Chat.Engine = &model
	}

	stepSettings.API.LoadKeysFromEnv()

	return stepSettings, nil
}
