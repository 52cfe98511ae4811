// Command shopkart runs the shop API and its maintenance tasks.
//
//	shopkart serve            start the HTTP server and in-process queue workers
//	shopkart migrate          create the MongoDB indexes
//	shopkart seed             insert the demo seller, buyer and catalog
//	shopkart user:promote     grant the seller role
//	shopkart queue:work       run queue workers only (redis driver)
//	shopkart route:list       print the route table
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/shashiranjanraj/shopkart/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "shopkart",
	Short:         "shopkart e-commerce API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(userPromoteCmd)
	rootCmd.AddCommand(queueWorkCmd)
}
