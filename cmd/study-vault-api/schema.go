package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/noah-isme/study-vault-api/internal/repository"
	"github.com/noah-isme/study-vault-api/pkg/config"
	"github.com/noah-isme/study-vault-api/pkg/database"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the Postgres catalog schema",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the notes table and indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd.Context(), repository.CreateSchema)
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the notes table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd.Context(), repository.DropSchema)
	},
}

func init() {
	schemaCmd.AddCommand(schemaCreateCmd, schemaDropCmd)
}

func withDatabase(ctx context.Context, fn func(context.Context, *sqlx.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fn(ctx, db); err != nil {
		return err
	}
	fmt.Println("done")
	return nil
}
