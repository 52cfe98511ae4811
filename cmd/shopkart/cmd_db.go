package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/database/seeders"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/migration"
)

// withDB loads config, connects, runs fn and disconnects.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *mongo.Database) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.Connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close(context.Background(), db)
	return fn(ctx, db)
}

// shopkart migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			fmt.Println("Running migrations…")
			return migration.New(db, os.Stdout).Run(ctx)
		})
	},
}

// shopkart migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			fmt.Println("Rolling back last batch…")
			return migration.New(db, os.Stdout).Rollback(ctx)
		})
	},
}

// shopkart migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			return migration.New(db, os.Stdout).Status(ctx)
		})
	},
}

// shopkart seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo seller, buyer and catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			fmt.Println("Running seeders…")
			if err := seeders.RunAll(ctx, db, os.Stdout); err != nil {
				return err
			}
			fmt.Printf("Log in as %s or %s with password %q.\n", seeders.SellerEmail, seeders.BuyerEmail, seeders.DemoPassword)
			return nil
		})
	},
}
