package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/internal/kernel"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	queueWorkersFlag int
	revokeSellerFlag bool
)

// shopkart queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if config.QueueDriver() != "redis" {
			logger.Warn("QUEUE_DRIVER is memory; jobs dispatched by other processes are not visible here")
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		workers := max(queueWorkersFlag, 1)
		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		a.Queue.Run(ctx, workers)
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

// shopkart user:promote <email>
var userPromoteCmd = &cobra.Command{
	Use:   "user:promote <email>",
	Short: "Grant (or with --revoke, remove) the seller role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			users := repositories.NewUserRepository(db)
			accounts := services.NewAccountService(users, nil)
			u, err := accounts.PromoteSeller(ctx, args[0], !revokeSellerFlag)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s) is_seller=%t\n", u.Email, u.ID.Hex(), u.IsSeller)
			return nil
		})
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 2, "Number of concurrent workers")
	userPromoteCmd.Flags().BoolVar(&revokeSellerFlag, "revoke", false, "Remove the seller role instead")
}
