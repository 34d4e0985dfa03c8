package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tour-stitcher/internal/assembler"
	"tour-stitcher/internal/config"
	"tour-stitcher/internal/database"
	"tour-stitcher/internal/distance"
	"tour-stitcher/internal/logging"
	"tour-stitcher/internal/metrics"
	"tour-stitcher/internal/models"
	"tour-stitcher/internal/problem"
	"tour-stitcher/internal/routing"
	"tour-stitcher/internal/sqlite"
)

// app carries state shared by every subcommand
type app struct {
	configPath string
	logLevel   string
	backend    string
	storageDir string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "stitcher",
		Short: "Assemble travelling salesman tours from independently solved clusters",
		Long: `stitcher partitions a point set into geographic clusters, solves each cluster
on its own and splices the sub-tours into one closed tour.

Examples:
  stitcher solve points.txt                 # partition, solve and merge in one go
  stitcher partition points.txt             # solve clusters and store their sub-tours
  stitcher merge points.txt --out tour.txt  # merge previously stored sub-tours
  stitcher serve --addr 127.0.0.1:8080      # HTTP API`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.tour-stitcher/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&a.backend, "backend", "", "storage backend: file or sqlite")
	flags.StringVar(&a.storageDir, "dir", "", "storage directory for sub-tours and run history")

	cmd.AddCommand(
		newSolveCmd(a),
		newPartitionCmd(a),
		newMergeCmd(a),
		newServeCmd(a),
	)

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = database.GetConfigFilePath(); err != nil {
			return err
		}
	}

	cfg, err := config.LoadOptional(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("backend") {
		cfg.Storage.Backend = a.backend
	}
	if flags.Changed("dir") {
		cfg.Storage.Dir = a.storageDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured persistence backend
func (a *app) openStore() (database.DataStore, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendSQLite:
		dbPath := a.cfg.Storage.DBPath
		if dbPath == "" {
			if a.cfg.Storage.Dir != "" {
				dbPath = filepath.Join(a.cfg.Storage.Dir, database.SQLiteDBFileName)
			} else {
				var err error
				if dbPath, err = database.GetDefaultDBPath(); err != nil {
					return nil, err
				}
			}
		}
		store, err := sqlite.New(dbPath, a.logger)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("opened sqlite store", zap.String("path", store.GetDBPath()))
		return store, nil
	default:
		dir := a.cfg.Storage.Dir
		if dir == "" {
			var err error
			if dir, err = database.GetAppDir(); err != nil {
				return nil, err
			}
		}
		store, err := database.NewJSONStore(dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// solverFactory returns the routing engine named by engine
func (a *app) solverFactory(engine string, store database.DataStore) assembler.SolverFactory {
	if engine == config.EngineStored {
		return func(dist distance.Calculator) routing.SubTourSolver {
			return routing.NewStoredSolver(store.SubTours(), dist)
		}
	}

	timeLimit := a.cfg.Solver.TimeLimit
	logger := a.logger
	return func(dist distance.Calculator) routing.SubTourSolver {
		return routing.NewTwoOptSolver(dist, timeLimit, logger)
	}
}

func (a *app) newAssembler(newSolver assembler.SolverFactory, persist database.SubTourRepository, collector *metrics.Collector) *assembler.Assembler {
	return assembler.New(assembler.Options{
		Partition:     a.cfg.PartitionerConfig(),
		CacheLimit:    a.cfg.Distance.CacheLimit,
		MarginX:       a.cfg.Search.MarginX,
		MarginY:       a.cfg.Search.MarginY,
		MaxExpansions: a.cfg.Search.MaxExpansions,
		Workers:       a.cfg.Solver.Workers,
		Persist:       persist,
	}, newSolver, a.logger, collector)
}

// readProblem parses the problem at path; "-" reads from the command's stdin
func readProblem(cmd *cobra.Command, path string) ([]models.Point, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open problem: %w", err)
		}
		defer f.Close()
		r = f
	}

	points, err := problem.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return points, nil
}

// writeResult writes the solution to out, or to the command's stdout when out is empty
func writeResult(cmd *cobra.Command, out string, result *models.Result) error {
	if out == "" {
		return problem.WriteSolution(cmd.OutOrStdout(), result)
	}

	tmpPath := out + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := problem.WriteSolution(f, result); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close output file: %w", err)
	}

	if err := os.Rename(tmpPath, out); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename output file: %w", err)
	}
	return nil
}
