package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samjwillis97/GoModal/pkg/config"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/tdms"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile    string
	workspaceFile string

	v   = config.New()
	cfg *config.Config
	ws  = config.NewWorkspace()

	// bound flags, reapplied over the workspace when set on the command line
	bindings = map[*pflag.Flag]string{}
)

var rootCmd = &cobra.Command{
	Use:   "gomodal",
	Short: "GoModal reads TDMS files and extracts modal parameters",
	Long: `GoModal reads NI TDMS files, summarises their channels and runs
modal analysis on frequency response data: per peak circle fits with
damping extraction and a global rational fraction polynomial fit.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/gomodal/gomodal.yaml)")
	rootCmd.PersistentFlags().StringVar(&workspaceFile, "workspace", "",
		"workspace file of key=value settings")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "also append logs to this file")
	rootCmd.PersistentFlags().StringP("output", "o", config.FormatTable, "output format (table, json, yaml)")

	bindFlag(rootCmd.PersistentFlags(), "verbose", "verbose")
	bindFlag(rootCmd.PersistentFlags(), "log-level", "log_level")
	bindFlag(rootCmd.PersistentFlags(), "log-file", "log_file")
	bindFlag(rootCmd.PersistentFlags(), "output", "output_format")
}

// bindFlag binds the flag name of fs to the configuration key.
func bindFlag(fs *pflag.FlagSet, name, key string) {
	f := fs.Lookup(name)
	if f == nil {
		panic("no flag to bind: " + name)
	}
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
	bindings[f] = key
}

// initConfig reads the config file, the environment and the workspace, then
// validates the result and configures logging.
func initConfig() error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "gomodal"))
		}
		v.AddConfigPath("/etc/gomodal")
		v.AddConfigPath("./configs")
		v.SetConfigName("gomodal")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GOMODAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return failure.Wrap(failure.IO, "config", err)
		}
	}

	if workspaceFile == "" {
		workspaceFile = v.GetString("workspace")
	}
	if workspaceFile != "" {
		file, err := os.Open(workspaceFile)
		if err != nil {
			return failure.Wrap(failure.IO, "workspace", err)
		}
		parsed, err := config.ParseWorkspace(file)
		file.Close()
		if err != nil {
			return err
		}
		ws = parsed
		ws.Apply(v)
	}
	for f, key := range bindings {
		if f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	if err := initLogging(cfg); err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debugf("Using config file: %s", used)
	}
	if workspaceFile != "" {
		log.Debugf("Using workspace: %s", workspaceFile)
	}
	return nil
}

// initLogging sets the level and, when a log file is configured, duplicates
// every entry to it.
func initLogging(c *config.Config) error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return failure.New(failure.DomainReject, "log_level", "%q", c.LogLevel)
	}
	if c.Verbose && level < log.DebugLevel {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if c.LogFile == "" {
		return nil
	}
	// If the file doesnt exist create it, or append to the file
	file, err := os.OpenFile(c.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return failure.Wrap(failure.IO, "log_file", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	return nil
}

// resolvePath places a relative path under the workspace workpath.
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if base := ws.String("workpath"); base != "" {
		return filepath.Join(base, path)
	}
	return path
}

// openFile opens and indexes a TDMS file.
func openFile(path string) (*tdms.File, error) {
	path = resolvePath(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, failure.Wrap(failure.IO, "open", err)
	}
	return tdms.Open(path)
}

// groupArg returns args[i], falling back to the workspace default group.
func groupArg(args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	if g := ws.String("default_group"); g != "" {
		return g, nil
	}
	return "", failure.New(failure.InputShape, "args", "no group given and no default_group in the workspace")
}
