package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/store/backend"
)

// errViolations makes the process exit 1 without printing anything more.
var errViolations = errors.New("integrity violations found")

// app holds the state shared by every command.
type app struct {
	store      store.Store
	driver     string
	out        io.Writer
	format     string
	violations bool
}

// configArgs are forwarded to config.Load so that the tool resolves the
// database exactly as the server does.
type configArgs struct {
	envFile     string
	driver      string
	dataPath    string
	mongoURI    string
	mongoDBName string
}

func (c configArgs) args() []string {
	var args []string
	add := func(name, value string) {
		if value != "" {
			args = append(args, "-"+name, value)
		}
	}
	add("env-file", c.envFile)
	add("db-driver", c.driver)
	add("data-path", c.dataPath)
	add("mongodb-uri", c.mongoURI)
	add("mongodb-database", c.mongoDBName)
	return args
}

func newRootCmd(out io.Writer) *cobra.Command {
	var cfgArgs configArgs
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "dbinspect",
		Short:         "Audit and repair BugHive's cross references",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.format != "yaml" && a.format != "json" {
				return fmt.Errorf("unknown format %q (want yaml or json)", a.format)
			}

			cfg, err := config.Load(cfgArgs.args())
			if err != nil {
				return err
			}

			s, err := backend.Open(cmd.Context(), cfg.Database, logger.Discard())
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
			}
			a.store = s
			a.driver = cfg.Database.Driver
			return nil
		},
		// Cobra skips post-run hooks when RunE fails, so commands report
		// violations through a.violations and the exit error is raised here.
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.store != nil {
				if err := a.store.Close(); err != nil {
					return err
				}
			}
			if a.violations {
				return errViolations
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgArgs.envFile, "env-file", ".env", "Path to .env file")
	flags.StringVar(&cfgArgs.driver, "db-driver", "", "Store backend: badger, sqlite or mongo")
	flags.StringVar(&cfgArgs.dataPath, "data-path", "", "Directory holding the embedded databases")
	flags.StringVar(&cfgArgs.mongoURI, "mongodb-uri", "", "MongoDB connection string")
	flags.StringVar(&cfgArgs.mongoDBName, "mongodb-database", "", "MongoDB database")
	flags.StringVarP(&a.format, "format", "o", "yaml", "Output format: yaml or json")

	root.AddCommand(
		newCheckCmd(a),
		newStatsCmd(a),
		newRepairCmd(a),
	)
	return root
}

// print writes v in the selected format.
func (a *app) print(v any) error {
	if a.format == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
