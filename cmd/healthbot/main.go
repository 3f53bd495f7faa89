package main

import (
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/healthbot/cmd/healthbot/cmds"
	"github.com/go-go-golems/healthbot/pkg/settings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:   "healthbot",
	Short: "healthbot is an educational health assistant for the terminal",
	Long: "healthbot answers general health and wellness questions. Messages that mention\n" +
		"emergency symptoms are answered with a fixed referral to immediate medical care\n" +
		"and are never sent to the language model.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		initLogger()
	},
}

func initLogger() {
	logLevel := viper.GetString("log-level")
	verbose := viper.GetBool("verbose")
	if verbose && logLevel != "trace" {
		logLevel = "debug"
	}

	err := InitLogger(&logConfig{
		Level:      logLevel,
		LogFile:    viper.GetString("log-file"),
		LogFormat:  viper.GetString("log-format"),
		WithCaller: viper.GetBool("with-caller"),
	})
	cobra.CheckErr(err)
}

type logConfig struct {
	WithCaller bool
	Level      string
	LogFormat  string
	LogFile    string
}

func initViper(rootCmd *cobra.Command, configPath string) error {
	viper.SetEnvPrefix("healthbot")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.healthbot")
		viper.AddConfigPath("/etc/healthbot")

		xdgConfigPath, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(xdgConfigPath + "/healthbot")
		}
	}

	err := viper.ReadInConfig()
	// if the file does not exist, continue normally
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// Config file not found; ignore error
	} else if err != nil {
		return err
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// the credential is also picked up from the environment variable the
	// OpenAI tooling uses
	if err := viper.BindEnv("openai-api-key", "HEALTHBOT_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return err
	}

	err = viper.BindPFlags(rootCmd.PersistentFlags())
	if err != nil {
		return err
	}

	initLogger()

	log.Debug().
		Str("config", viper.ConfigFileUsed()).
		Msg("Loaded configuration")

	return nil
}

func InitLogger(config *logConfig) error {
	if config.WithCaller {
		log.Logger = log.With().Caller().Logger()
	}
	// text is the default, any other format logs json
	var logWriter io.Writer
	if config.LogFormat == "text" {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	} else {
		logWriter = os.Stderr
	}

	if config.LogFile != "" {
		fileWriter := zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   config.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, //days
				Compress:   false,
			},
		}
		// the chat UI owns the terminal, so only log to the file then
		logWriter = fileWriter
	}

	log.Logger = log.Output(logWriter)

	switch config.Level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	}

	return nil
}

func main() {
	// parse the flags one time just to catch --config
	configFile := ""
	for idx, arg := range os.Args {
		if arg == "--config" && len(os.Args) > idx+1 {
			configFile = os.Args[idx+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			configFile = strings.TrimPrefix(arg, "--config=")
		}
	}

	err := initViper(rootCmd, configFile)
	cobra.CheckErr(err)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()

	// logging flags
	pf.Bool("with-caller", false, "Log caller")
	pf.String("log-level", "warn", "Log level (trace, debug, info, warn, error, fatal)")
	pf.String("log-format", "text", "Log format (json, text)")
	pf.String("log-file", "", "Log file (default: stderr)")
	pf.Bool("verbose", false, "Verbose output")

	pf.String("config", "", "Path to config file (default ~/.healthbot/config.yaml)")
	pf.String(cmds.KeySettingsFile, "", "Path to a YAML settings file with a top-level 'healthbot' key")

	// provider flags
	pf.String(settings.KeyApiType, string(settings.ApiTypeOpenAI), "API type (openai, anyscale, fireworks, ollama)")
	pf.String(settings.KeyModel, settings.DefaultEngine, "Model to use")
	pf.Float64(settings.KeyTemperature, settings.DefaultTemperature, "Sampling temperature")
	pf.Int(settings.KeyMaxResponseTokens, 0, "Maximum number of tokens in a reply (0: provider default)")
	pf.Bool(settings.KeyStream, false, "Stream replies as they are generated")
	pf.Duration(settings.KeyTimeout, settings.DefaultTimeout, "Timeout for a single reply")
	pf.String(settings.KeyUserAgent, "", "User agent sent to the provider")
	pf.String("openai-api-key", "", "OpenAI API key (also read from OPENAI_API_KEY)")
	pf.String("openai-base-url", "", "OpenAI API base URL")
	pf.String("anyscale-api-key", "", "Anyscale API key")
	pf.String("fireworks-api-key", "", "Fireworks API key")
	pf.Int(settings.KeyOllamaNumCtx, 0, "Ollama context window size")
	pf.Int(settings.KeyOllamaSeed, 0, "Ollama sampling seed")
	pf.Bool(cmds.KeyCountTokens, false, "Log prompt and completion token counts")

	// assistant flags
	pf.String(settings.KeyAssistantName, "", "Name the assistant introduces itself with")
	pf.String(settings.KeyLanguage, "", "Language the assistant answers in")

	rootCmd.AddCommand(
		cmds.NewChatCommand(),
		cmds.NewAskCommand(),
	)

	checkCmdInstance, err := cmds.NewCheckCommand()
	cobra.CheckErr(err)
	checkCommand, err := cli.BuildCobraCommandFromGlazeCommand(checkCmdInstance)
	cobra.CheckErr(err)
	rootCmd.AddCommand(checkCommand)
}
