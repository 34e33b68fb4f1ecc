package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Emoji matches the teacher's habit of prefixing CLI log lines with a
// small marker; kept here purely as a texture match, not a feature.
var Emoji = "\U0001F512" + " gotls:"

var debugMode bool

func setupLogger() *zap.Logger {
	logCfg := zap.NewDevelopmentConfig()
	logCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	if debugMode {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		logCfg.DisableStacktrace = false
	} else {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		logCfg.DisableStacktrace = true
		logCfg.EncoderConfig.EncodeCaller = nil
	}

	logger, err := logCfg.Build()
	if err != nil {
		log.Fatalln(Emoji, "failed to start the logger for the CLI", err)
	}
	return logger
}

// Root holds the logger the cobra command tree is built with.
type Root struct {
	logger *zap.Logger
}

func newRoot() *Root {
	return &Root{}
}

// Execute is the package's single entry point, called from main().
func Execute() {
	newRoot().execute()
}

func checkForDebugFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--debug" {
			return true
		}
	}
	return false
}

func (r *Root) execute() {
	rootCmd := &cobra.Command{
		Use:     "gotls",
		Short:   "A minimal TLS 1.0/1.1/1.2 client",
		Version: "0.1.0",
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Run in debug mode")
	rootCmd.PersistentFlags().String("config", "", "Path to a gotls config file (yaml/json/toml)")

	debugMode = checkForDebugFlag(os.Args[1:])
	r.logger = setupLogger()

	cobra.OnInitialize(func() {
		cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.SetConfigName("gotls")
			viper.AddConfigPath(".")
		}
		viper.SetEnvPrefix("GOTLS")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			r.logger.Debug("no config file loaded", zap.Error(err))
		}
	})

	rootCmd.AddCommand(newDialCmd(r.logger))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Emoji, err)
		os.Exit(1)
	}
}
