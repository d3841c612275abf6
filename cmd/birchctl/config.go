package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
	"github.com/tinialabs/react-birch-sub000/tree"
)

var cfgFile string

func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/birchctl/config.yaml)")
	flags.String("source", "auto", "Source kind: auto, fs, yaml or sqlite")
	flags.Bool("debug", false, "Validate host records and check tree invariants after every change")
	flags.String("collate", "", "Sort labels with the collation of a language tag (e.g. de, sv)")
	cobra.CheckErr(viper.BindPFlag("source", flags.Lookup("source")))
	cobra.CheckErr(viper.BindPFlag("debug", flags.Lookup("debug")))
	cobra.CheckErr(viper.BindPFlag("collate", flags.Lookup("collate")))
}

func setDefaults() {
	viper.SetDefault("source", "auto")
	viper.SetDefault("debug", false)
	viper.SetDefault("flush_delay", tree.DefaultFlushDelay)
	viper.SetDefault("collate", "")
	viper.SetDefault("expand", []string{})
	viper.SetDefault("log.enabled", false)
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.retention", logger.DefaultRetention)
	viper.SetDefault("fs.hidden", false)
	viper.SetDefault("fs.ignore", []string{})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "birchctl"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("BIRCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			printStatus("birchctl: config: %v\n", err)
		}
		return
	}
	printVerbose("Using config file: %s\n", viper.ConfigFileUsed())
}

// settings is the resolved configuration of one command run.
type settings struct {
	Source     string
	Debug      bool
	FlushDelay time.Duration
	Collate    string
	Expand     []string
	Log        logger.Options
	FSHidden   bool
	FSIgnore   []string
}

func loadSettings() (settings, error) {
	s := settings{
		Source:     strings.ToLower(viper.GetString("source")),
		Debug:      viper.GetBool("debug"),
		FlushDelay: viper.GetDuration("flush_delay"),
		Collate:    viper.GetString("collate"),
		Expand:     viper.GetStringSlice("expand"),
		Log: logger.Options{
			Enabled:   viper.GetBool("log.enabled"),
			LogDir:    viper.GetString("log.dir"),
			Level:     logger.ParseLevel(viper.GetString("log.level")),
			Retention: viper.GetDuration("log.retention"),
		},
		FSHidden: viper.GetBool("fs.hidden"),
		FSIgnore: viper.GetStringSlice("fs.ignore"),
	}
	switch s.Source {
	case "", "auto", sourceFS, sourceYAML, sourceSQLite:
	default:
		return s, fmt.Errorf("unknown source %q (want auto, fs, yaml or sqlite)", s.Source)
	}
	return s, nil
}

// treeOptions maps settings onto tree options.
func (s settings) treeOptions() (tree.Options, error) {
	opts := tree.Options{Debug: s.Debug, FlushDelay: s.FlushDelay}
	if s.Collate != "" {
		tag, err := language.Parse(s.Collate)
		if err != nil {
			return opts, fmt.Errorf("collate %q: %w", s.Collate, err)
		}
		opts.Comparator = tree.CollatedComparator(tag)
	}
	return opts, nil
}

func setupLogging() error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	return logger.Init(s.Log)
}
