package main

import (
	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"

	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
)

// Config holds the database configuration of the ctl tool.
type Config struct {
	Postgres string `env:"POSTGRES,required"`
}

func openDatabase(cmd *cobra.Command) (*csql.DB, error) {
	config := &Config{}
	if err := envdecode.Decode(config); err != nil {
		return nil, err
	}
	db := csql.New(config.Postgres, "finquest")
	if err := db.EnsureConnected(cmd.Context()); err != nil {
		return nil, err
	}
	return db, nil
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the finquest database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the entity tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		_, err = db.ExecContext(cmd.Context(), migrationDDL(db.Schema))
		return err
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the schema and recreate the entity tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.ClearSchema(); err != nil {
			return err
		}
		_, err = db.ExecContext(cmd.Context(), migrationDDL(db.Schema))
		return err
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	rootCmd.AddCommand(dbCmd)
}
