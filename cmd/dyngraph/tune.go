package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/dyngraph/internal/config"
	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/logging"
	"github.com/san-kum/dyngraph/internal/metrics"
	"github.com/san-kum/dyngraph/internal/optim"
	"github.com/san-kum/dyngraph/internal/physics"
	"github.com/san-kum/dyngraph/internal/viz"
)

var (
	grid    []string
	workers int
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune [model]",
		Short: "grid-search controller gains against the tracking error",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addModelFlags(cmd)
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps per evaluation")
	cmd.Flags().StringArrayVar(&grid, "grid", nil, "gain values, e.g. --grid Kp=1:2:4 (repeatable)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent evaluations (default GOMAXPROCS)")
	return cmd
}

// parseGrid turns name=v1:v2:... entries into sorted names and their values.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	byName := make(map[string][]float64, len(entries))
	for _, e := range entries {
		name, list, ok := strings.Cut(e, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("%w: grid entry %q is not name=v1:v2", dynamo.ErrInvalidParameter, e)
		}
		for _, s := range strings.Split(list, ":") {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: grid entry %q: %v", dynamo.ErrInvalidParameter, e, err)
			}
			byName[name] = append(byName[name], v)
		}
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	ranges := make([][]float64, len(names))
	for i, name := range names {
		ranges[i] = byName[name]
	}
	return names, ranges, nil
}

// objective is the tracked component and its target: the cart position for a
// table cart, the upright angle for the pendulum.
func objective(cfg *config.Config) (int, float64) {
	if cfg.Model == physics.ClassInvertedPendulum {
		return 1, 0
	}
	return 0, cfg.ControllerParams.Target
}

func evaluator(cfg *config.Config) optim.Evaluate {
	component, goal := objective(cfg)
	return func(ctx context.Context, p map[string]float64) (float64, error) {
		sess, err := build(cfg, logging.NewNop())
		if err != nil {
			return 0, err
		}
		law, ok := sess.Law.(dynamo.Configurable)
		if !ok {
			return 0, fmt.Errorf("%w: controller %s has no tunable gains", dynamo.ErrConfiguration, cfg.Controller)
		}
		for name, v := range p {
			if err := law.SetParam(name, v); err != nil {
				return 0, err
			}
		}
		iae := metrics.NewTrackingError(component, goal)
		sess.Host.AddMetric(iae)
		res, err := sess.Host.Run(ctx, cfg.Name, cfg.SimConfig())
		if err != nil {
			return 0, err
		}
		return res.Metrics[iae.Name()], nil
	}
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("controller") && preset == "" && configFile == "" {
		cfg.Controller = "pid"
		if cfg.Model == physics.ClassInvertedPendulum {
			cfg.Controller = "lqr"
		}
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	search, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	search.SetWorkers(workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	best, err := search.Search(ctx, evaluator(cfg))
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("%s(%s) %s", cfg.Model, cfg.Name, cfg.Controller)) + " " +
		viz.Subtle.Render(fmt.Sprintf("%d points, %d failed", best.Evaluated, best.Failed)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%g\n", name, best.Params[name])
	}
	fmt.Fprintf(w, "tracking error\t%.6f\n", best.Value)
	return w.Flush()
}
