package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DefaultFile is the vault file name under the home directory
const DefaultFile = ".passvault.db"

// app carries the configuration shared by all commands
type app struct {
	cfg     *viper.Viper
	log     *logrus.Logger
	cfgFile string
}

// NewRootCmd builds the passvault command tree
func NewRootCmd() *cobra.Command {
	a := &app{cfg: viper.New(), log: logrus.New()}

	root := &cobra.Command{
		Use:   "passvault",
		Short: "Encrypted password vault",
		Long: `passvault keeps named entries in a single encrypted file.

Keys are derived from a password and a user name. Entry names are sealed
under one key and entry contents under another.

Configuration is read from $HOME/.passvault.yaml and PASSVAULT_* variables.`,
		Example: `  passvault init -n alice            # Create a new vault
  passvault put -n alice github      # Store an entry from a prompt
  passvault get -n alice github      # Print an entry
  passvault ls -l -n alice           # List entries with timestamps
  passvault merge -n alice ~/old.db  # Copy entries missing here`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.passvault.yaml)")
	flags.StringP("file", "f", "", "vault file (default is $HOME/"+DefaultFile+")")
	flags.StringP("name", "n", "", "user name, part of the key derivation")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	a.bindFlag(root, "file", "file")
	a.bindFlag(root, "name", "name")
	a.bindFlag(root, "log.level", "log-level")

	root.AddCommand(
		a.initCmd(),
		a.lsCmd(),
		a.getCmd(),
		a.putCmd(),
		a.editCmd(),
		a.rmCmd(),
		a.mvCmd(),
		a.mergeCmd(),
		a.passwdCmd(),
		a.compactCmd(),
		a.statusCmd(),
		a.keyringCmd(),
	)
	return root
}

func (a *app) bindFlag(root *cobra.Command, key, flag string) {
	if err := a.cfg.BindPFlag(key, root.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
	}
}

func (a *app) setDefaults() {
	kdf := crypto.DefaultKDF()
	a.cfg.SetDefault("scrypt.n", kdf.N)
	a.cfg.SetDefault("scrypt.r", kdf.R)
	a.cfg.SetDefault("scrypt.p", kdf.P)
	a.cfg.SetDefault("lock.timeout", "1s")
	a.cfg.SetDefault("log.level", "warn")

	if home, err := os.UserHomeDir(); err == nil {
		a.cfg.SetDefault("file", filepath.Join(home, DefaultFile))
	} else {
		a.cfg.SetDefault("file", DefaultFile)
	}
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	a.setDefaults()

	if a.cfgFile != "" {
		a.cfg.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.cfg.AddConfigPath(home)
		}
		a.cfg.SetConfigType("yaml")
		a.cfg.SetConfigName(".passvault")
	}

	a.cfg.SetEnvPrefix("PASSVAULT")
	a.cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.cfg.AutomaticEnv()

	if err := a.cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	level, err := logrus.ParseLevel(a.cfg.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.log.SetLevel(level)
	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.WithField("config", a.cfg.ConfigFileUsed()).Debug("configuration loaded")
	return nil
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, describe(err))
		return 1
	}
	return 0
}
