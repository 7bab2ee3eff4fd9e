package command

// root.go defines the root command for the libraryhub admin CLI and
// binds its global flags to viper.

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"libraryhub/database"
	"libraryhub/internal/microservices/http-api/repository"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	cfgFile string
	v       = viper.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "libraryhub",
	Short: "libraryhub - library administration tool",
	Long: `libraryhub works directly against the library database. Use it to:
- Seed a fresh database with an admin account and sample books
- Create admin accounts
- Import and export the catalog as xlsx
- Check the ledger against the availability counters

Settings come from flags, LIBRARYHUB_* environment variables or a config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("database-driver", "sqlite", "database driver: postgres or sqlite")
	pf.String("database-url", "libraryhub.db", "database DSN or sqlite file path")
	pf.Bool("db-log-mode", false, "log SQL statements")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")

	for _, name := range []string{"database-driver", "database-url", "db-log-mode", "log-level"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(seedCmd, adminCmd, booksCmd, ledgerCmd)
}

// initConfig layers config file and LIBRARYHUB_ env vars under the flags.
func initConfig() error {
	v.SetEnvPrefix("LIBRARYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log-level %q", v.GetString("log-level"))
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// app is what every subcommand needs: an open, migrated database and the services over it.
type app struct {
	db       *gorm.DB
	accounts service.AccountService
	books    service.BookService
	ledger   service.LedgerService
}

func openApp() (*app, error) {
	db, err := database.Open(v.GetString("database-driver"), v.GetString("database-url"), v.GetBool("db-log-mode"))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := slog.Default()
	store := repository.NewStore(db)
	return &app{
		db:       db,
		accounts: service.NewAccountService(store, logger),
		books:    service.NewBookService(store, logger),
		ledger:   service.NewLedgerService(store, 0, service.WithLogger(logger)),
	}, nil
}

func (a *app) Close() { _ = database.Close(a.db) }
