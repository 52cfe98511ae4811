package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/internal/kernel"
	"github.com/shashiranjanraj/shopkart/internal/server"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

// shopkart serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		// The memory queue only exists in this process, so its workers must too.
		var workers sync.WaitGroup
		workers.Add(1)
		go func() {
			defer workers.Done()
			a.Queue.Run(ctx, config.QueueWorkers())
		}()

		err = server.Serve(ctx, ":"+config.AppPort(), a.Handler())
		stop()
		workers.Wait()
		logger.Info("shutdown complete")
		return err
	},
}

// shopkart route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range kernel.RouteTable() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
