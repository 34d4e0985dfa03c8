package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tour-stitcher/internal/config"
	"tour-stitcher/internal/database"
	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/metrics"
	"tour-stitcher/internal/models"
	"tour-stitcher/internal/server"
)

func newSolveCmd(a *app) *cobra.Command {
	var (
		out    string
		record bool
	)

	cmd := &cobra.Command{
		Use:   "solve <problem>",
		Short: "Partition, solve and merge a problem into one tour",
		Long: `Read a problem ("-" for stdin), solve every cluster with the configured engine,
splice the sub-tours together and write the tour in the exchange format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := readProblem(cmd, args[0])
			if err != nil {
				return err
			}

			var store database.DataStore
			if record || a.cfg.Solver.Engine == config.EngineStored {
				if store, err = a.openStore(); err != nil {
					return err
				}
				defer store.Close()
			}

			asm := a.newAssembler(a.solverFactory(a.cfg.Solver.Engine, store), nil, nil)
			result, err := asm.Assemble(cmd.Context(), points)
			if err != nil {
				return err
			}

			if record {
				run, err := store.Runs().Create(cmd.Context(), newRun(len(points), result))
				if err != nil {
					return fmt.Errorf("failed to record run: %w", err)
				}
				a.logger.Info("recorded run", zap.String("id", run.ID))
			}

			return writeResult(cmd, out, result)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the tour to this file instead of stdout")
	cmd.Flags().BoolVar(&record, "record", false, "store the run in the run history")

	return cmd
}

func newPartitionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition <problem>",
		Short: "Solve every cluster and store the sub-tours",
		Long: `Partition a problem, solve each cluster with the built-in 2-opt engine and store
every sub-tour, replacing the ones stored before. "stitcher merge" splices them later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := readProblem(cmd, args[0])
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SubTours().Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear stored sub-tours: %w", err)
			}

			asm := a.newAssembler(a.solverFactory(config.EngineTwoOpt, store), store.SubTours(), nil)
			plan, err := asm.Solve(cmd.Context(), points)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CLUSTER\tPOINTS\tLENGTH")
			for i, cluster := range plan.Clusters {
				fmt.Fprintf(w, "%s\t%d\t%.2f\n", cluster.Name(), len(cluster.Points), distance.Unscale(plan.SubTours[i].Objective))
			}
			return w.Flush()
		},
	}

	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "merge <problem>",
		Short: "Splice stored sub-tours into one tour",
		Long: `Partition a problem the same way "stitcher partition" did, load the stored sub-tour
of every cluster and splice them into one tour. Stored tours that no longer match the
problem's clusters are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := readProblem(cmd, args[0])
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			asm := a.newAssembler(a.solverFactory(config.EngineStored, store), nil, nil)
			result, err := asm.Assemble(cmd.Context(), points)
			if err != nil {
				return err
			}

			return writeResult(cmd, out, result)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the tour to this file instead of stdout")

	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tour API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}

			collector := metrics.NewCollector("stitcher")
			asm := a.newAssembler(a.solverFactory(a.cfg.Solver.Engine, store), nil, collector)

			srv := server.New(server.Config{
				Addr:         a.cfg.Server.Addr,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
			}, store, asm, collector, a.logger)

			actualAddr, err := srv.Start()
			if err != nil {
				store.Close()
				return fmt.Errorf("failed to start server: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", actualAddr)

			<-cmd.Context().Done()
			a.logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("could not gracefully shutdown the server: %w", err)
			}

			a.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")

	return cmd
}

func newRun(pointCount int, result *models.Result) *models.Run {
	return &models.Run{
		PointCount: pointCount,
		Clusters:   result.Clusters,
		Length:     result.Length,
		Optimal:    result.Optimal,
		Tour:       result.Tour,
	}
}
