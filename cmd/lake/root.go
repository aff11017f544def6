package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/acksell/datalake/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	v *viper.Viper

	configFile    string
	credentials   string
	region        string
	bucket        string
	resultsBucket string
	workgroup     string
	database      string
	endpoint      string
	tablesFile    string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "lake",
		Short: "Provision the S3, Glue and Athena resources of the data lake",
		Long: `lake creates the data lake bucket and uploads its data, registers the
landing, trusted and curated tables in the Glue catalog, points Athena query
results at a dedicated bucket, and tears the lake bucket down again.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setupLogger(cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "project file (default: lake.yaml in this or a parent directory)")
	flags.StringVar(&opts.credentials, "credentials", "", "INI credentials file (default: credentials from the project file)")
	flags.StringVar(&opts.region, "region", "", "AWS region")
	flags.StringVar(&opts.bucket, "bucket", "", "lake bucket name")
	flags.StringVar(&opts.resultsBucket, "results-bucket", "", "Athena results bucket name")
	flags.StringVar(&opts.workgroup, "workgroup", "", "Athena workgroup")
	flags.StringVar(&opts.database, "database", "", "Glue database")
	flags.StringVar(&opts.endpoint, "endpoint", "", "S3-compatible endpoint URL")
	flags.StringVar(&opts.tablesFile, "tables", "", "YAML table definition replacing the built-in one")
	flags.String("ledger-table", "", "DynamoDB table to record runs in")
	flags.Duration("ledger-retention", 0, "expire recorded runs after this long (0 keeps them)")
	flags.String("local", "", "run against a local emulator stored in this directory (\":memory:\" for in-memory)")
	flags.Bool("strict", false, "exit non-zero when any operation fails")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")

	opts.v.SetEnvPrefix("LAKE")
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()
	for _, name := range []string{"ledger-table", "ledger-retention", "local", "strict", "log-level", "log-format"} {
		mustBindPFlag(opts.v, name, flags.Lookup(name))
	}

	cmd.AddCommand(
		newBucketCmd(opts),
		newCatalogCmd(opts),
		newResultsCmd(opts),
		newTeardownCmd(opts),
		newTablesCmd(opts),
		newRunsCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setupLogger builds the process logger from --log-level and --log-format.
// Levels take slog's own spelling, so "debug", "WARN" and "info+2" all work.
func (o *rootOptions) setupLogger(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format := strings.ToLower(o.v.GetString("log-format")); format {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return fmt.Errorf("invalid --log-format %q: want text or json", format)
	}

	o.logger = slog.New(handler)
	slog.SetDefault(o.logger)
	return nil
}

// loadProject reads the project file and applies flag overrides.
func (o *rootOptions) loadProject() (config.Project, error) {
	p, err := config.LoadProject(o.configFile)
	if err != nil {
		return p, err
	}
	override(&p.Credentials, o.credentials)
	override(&p.Region, o.region)
	override(&p.Bucket, o.bucket)
	override(&p.ResultsBucket, o.resultsBucket)
	override(&p.Workgroup, o.workgroup)
	override(&p.Database, o.database)
	override(&p.Endpoint, o.endpoint)
	override(&p.TablesFile, o.tablesFile)
	override(&p.LedgerTable, o.v.GetString("ledger-table"))

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid project configuration: %w", err)
	}
	return p, nil
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("viper.BindPFlag(%q): %v", key, err))
	}
}
