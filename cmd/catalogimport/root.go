package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/storefront/backend/internal/bootstrap"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

type app struct {
	configPath string
	logLevel   string
	tenant     string
	actor      string
	output     string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "catalogimport",
		Short: "Bulk-import product catalogs from CSV and XLSX files",
		Long: `catalogimport drives the catalog import pipeline outside the HTTP API.

It shares configuration with the server (config.toml plus STOREFRONT_*
environment variables) and writes to the same database.

Examples:
  # Create or update a profile from a YAML file
  catalogimport --tenant $TENANT profile apply -f supplier-a.yaml

  # Preview a file without touching the database
  catalogimport preview --file catalog.csv

  # Stage a file in import storage, then import it by key
  catalogimport --tenant $TENANT stage --file catalog.csv
  catalogimport --tenant $TENANT run --profile $PROFILE --key $TENANT/catalog.csv

  # Import a local file with a stored profile
  catalogimport --tenant $TENANT run --profile $PROFILE --file catalog.csv

  # Apply schema migrations
  catalogimport migrate up`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default: search ./config.toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: from config)")
	flags.StringVarP(&a.tenant, "tenant", "t", "", "Tenant ID")
	flags.StringVar(&a.actor, "actor", "", "User ID recorded as the importer")
	flags.StringVarP(&a.output, "output", "o", outputJSON, "Output format: json|yaml")

	root.AddCommand(
		newRunCmd(a),
		newPreviewCmd(a),
		newProfileCmd(a),
		newHistoryCmd(a),
		newMigrateCmd(a),
		newStageCmd(a),
	)
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	if a.output != outputJSON && a.output != outputYAML {
		return fmt.Errorf("unknown output format %q", a.output)
	}

	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	level := a.logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) tenantID() (uuid.UUID, error) {
	if a.tenant == "" {
		return uuid.Nil, errors.New("--tenant is required")
	}
	id, err := uuid.Parse(a.tenant)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant %q", a.tenant)
	}
	return id, nil
}

func (a *app) actorID() (*uuid.UUID, error) {
	if a.actor == "" {
		return nil, nil
	}
	id, err := uuid.Parse(a.actor)
	if err != nil {
		return nil, fmt.Errorf("invalid --actor %q", a.actor)
	}
	return &id, nil
}

func (a *app) stack(cmd *cobra.Command) (*bootstrap.Stack, error) {
	return bootstrap.Build(cmd.Context(), a.cfg, bootstrap.Options{
		Logger:       a.log,
		LockFallback: true,
	})
}

func (a *app) print(w io.Writer, v any) error {
	return encode(w, a.output, v)
}

// encode writes v as indented JSON, or as YAML through its JSON form so the
// json tags and custom marshalers decide the field names.
func encode(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format != outputYAML {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}
