package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/dyngraph/internal/config"
	"github.com/san-kum/dyngraph/internal/control"
	"github.com/san-kum/dyngraph/internal/integrators"
	"github.com/san-kum/dyngraph/internal/logging"
	"github.com/san-kum/dyngraph/internal/metrics"
	"github.com/san-kum/dyngraph/internal/physics"
	"github.com/san-kum/dyngraph/internal/sim"
	"github.com/san-kum/dyngraph/internal/storage"
	"github.com/san-kum/dyngraph/internal/viz"
)

var (
	dataDir  string
	logLevel string

	dt         float64
	steps      int
	name       string
	controlU   float64
	force      float64
	integrator string
	controller string
	kp         float64
	ki         float64
	kd         float64
	target     float64
	pos        float64
	theta      float64
	vel        float64
	omega      float64
	params     map[string]string
	configFile string
	preset     string

	plot        bool
	csvPath     string
	jsonPath    string
	showMetrics bool
	save        bool

	column string
	xAxis  string
	yAxis  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dyngraph",
		Short:         "table-cart and inverted pendulum dynamics on a pull-based signal graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dyngraph", "data directory for saved runs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the observable after the run")
	runCmd.Flags().StringVar(&csvPath, "csv", "", "write the trajectory as CSV (- for stdout)")
	runCmd.Flags().StringVar(&jsonPath, "json", "", "write the run as JSON (- for stdout)")
	runCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print signal graph metrics in Prometheus text format")
	runCmd.Flags().BoolVar(&save, "save", false, "save the run under the data directory")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a simulation with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addModelFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models := physics.Classes()
			if len(args) > 0 {
				models = args[:1]
			}
			for _, m := range models {
				presets := config.ListPresets(m)
				if len(presets) == 0 {
					fmt.Printf("no presets for model: %s\n", m)
					continue
				}
				fmt.Println(viz.Title.Render(m))
				for _, p := range presets {
					cfg := config.GetPreset(m, p)
					fmt.Printf("  %-10s %s\n", p, viz.Subtle.Render(fmt.Sprintf("%s, %s, %d steps", cfg.Controller, cfg.Integrator, cfg.Steps)))
				}
			}
			return nil
		},
	}

	paramsCmd := &cobra.Command{
		Use:   "params [model]",
		Short: "list model parameters and their defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listParams,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a column of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "column to plot (default: every state component)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print the trajectory of a saved run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "", "column to analyze (default: position or pole angle)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xAxis, "x-axis", "x1", "column for the x-axis")
	phaseCmd.Flags().StringVar(&yAxis, "y-axis", "x3", "column for the y-axis")

	rootCmd.AddCommand(runCmd, liveCmd, presetsCmd, paramsCmd, listCmd, plotCmd, exportCSVCmd, analyzeCmd, phaseCmd, newTuneCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusError.Render("error:"), err)
		os.Exit(1)
	}
}

func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&dt, "dt", config.DefaultDt, "time step")
	f.StringVar(&name, "name", config.DefaultName, "entity name")
	f.Float64Var(&controlU, "control", 0, "constant control input")
	f.Float64Var(&force, "force", 0, "constant perturbation force")
	f.StringVar(&integrator, "integrator", "euler", "integrator ("+strings.Join(integrators.Names(), ", ")+")")
	f.StringVar(&controller, "controller", "none", "controller ("+strings.Join(control.Names(), ", ")+")")
	f.Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	f.Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	f.Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	f.Float64Var(&target, "target", 0, "position tracked by pid and lqr")
	f.Float64Var(&pos, "pos", 0, "initial cart position")
	f.Float64Var(&theta, "theta", 0, "initial pole angle (InvertedPendulum)")
	f.Float64Var(&vel, "vel", 0, "initial cart velocity (InvertedPendulum)")
	f.Float64Var(&omega, "omega", 0, "initial pole angular velocity (InvertedPendulum)")
	f.StringToStringVar(&params, "param", nil, "model parameter override, e.g. --param cartMass=10")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig layers defaults, preset, config file and explicitly set flags,
// in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && loaded.Model != args[0] {
			return nil, fmt.Errorf("config is for %s, not %s", loaded.Model, args[0])
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Lookup("steps") != nil && flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("name") {
		cfg.Name = name
	}
	if flags.Changed("control") {
		cfg.Control = []float64{controlU}
	}
	if flags.Changed("force") {
		cfg.Force = force
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("kp") {
		cfg.ControllerParams.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.ControllerParams.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.ControllerParams.Kd = kd
	}
	if flags.Changed("target") {
		cfg.ControllerParams.Target = target
	}
	if flags.Changed("pos") {
		cfg.InitState.Pos = pos
	}
	if flags.Changed("theta") {
		cfg.InitState.Theta = theta
	}
	if flags.Changed("vel") {
		cfg.InitState.Vel = vel
	}
	if flags.Changed("omega") {
		cfg.InitState.Omega = omega
	}
	if len(params) > 0 {
		if err := cfg.Params.MergeParams(params); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// build spawns the configured entity on a fresh host and attaches its law.
// The "none" controller leaves the control input unplugged so it holds the
// configured constant control.
func build(cfg *config.Config, logger *slog.Logger) (*viz.Session, error) {
	host, err := sim.New(logger)
	if err != nil {
		return nil, err
	}
	m, err := host.Spawn(cfg.Model, cfg.Name)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(m); err != nil {
		return nil, err
	}
	law, err := cfg.Law()
	if err != nil {
		return nil, err
	}
	if cfg.Controller != "none" {
		if _, err := host.Attach(cfg.Name, law, cfg.Dt); err != nil {
			return nil, err
		}
	}
	return &viz.Session{Host: host, Model: m, Law: law}, nil
}

func addMetrics(host *sim.Host, m physics.Model) {
	host.AddMetric(metrics.NewControlEffort())
	if p, ok := m.(*physics.InvertedPendulum); ok {
		host.AddMetric(metrics.NewEnergy(metrics.PendulumEnergy(p)))
		host.AddMetric(metrics.NewEnergyDrift(metrics.PendulumEnergy(p)))
		host.AddMetric(metrics.NewUprightStability(0.5))
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	sess, err := build(cfg, logger)
	if err != nil {
		return err
	}
	addMetrics(sess.Host, sess.Model)

	promReg := prometheus.NewRegistry()
	if showMetrics {
		collector, err := metrics.New(promReg)
		if err != nil {
			return err
		}
		sess.Host.SetGraphObserver(collector)
		sess.Host.AddObserver(collector)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, runErr := sess.Host.Run(ctx, cfg.Name, cfg.SimConfig())
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Entity:     cfg.Name,
		Class:      cfg.Model,
		Dt:         cfg.Dt,
		Steps:      cfg.Steps,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		Params:     sess.Model.Params(),
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	if err := writeOutputs(meta, result); err != nil {
		return err
	}
	if csvPath != "-" && jsonPath != "-" {
		printSummary(cfg, result, elapsed)
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(meta, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	if plot {
		for _, port := range physics.OutputPorts(cfg.Model) {
			if col := result.Outputs[port]; len(col) > 1 {
				fmt.Println(asciigraph.Plot(col, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption(port)))
				fmt.Println()
			}
		}
	}

	if showMetrics {
		if err := metrics.WriteText(os.Stdout, promReg); err != nil {
			return err
		}
	}
	return runErr
}

func writeOutputs(meta storage.RunMetadata, result *sim.Result) error {
	if csvPath != "" {
		if err := withOutput(csvPath, func(f *os.File) error { return storage.WriteCSV(f, result) }); err != nil {
			return err
		}
	}
	if jsonPath != "" {
		if err := withOutput(jsonPath, func(f *os.File) error { return storage.WriteJSON(f, meta, result) }); err != nil {
			return err
		}
	}
	return nil
}

func withOutput(path string, fn func(*os.File) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

func printSummary(cfg *config.Config, result *sim.Result, elapsed time.Duration) {
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s(%s)", cfg.Model, cfg.Name)) + " " +
		viz.Subtle.Render(fmt.Sprintf("%s, %s, dt=%g", cfg.Integrator, cfg.Controller, cfg.Dt)))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "completed in\t%v\n", elapsed)
	fmt.Fprintf(w, "steps\t%d/%d\n", result.StepsTaken, cfg.Steps)
	fmt.Fprintf(w, "final state\t%v\n", result.Final())
	for _, port := range physics.OutputPorts(cfg.Model) {
		if col := result.Outputs[port]; len(col) > 0 {
			fmt.Fprintf(w, "%s\t%.6f\n", port, col[len(col)-1])
		}
	}
	for name, val := range result.Metrics {
		fmt.Fprintf(w, "%s\t%.6f\n", name, val)
	}
	_ = w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Controller == "none" && !cmd.Flags().Changed("controller") && preset == "" && configFile == "" {
		cfg.Controller = "manual"
	}

	m, err := viz.NewModel(func() (*viz.Session, error) {
		return build(cfg, logging.NewNop())
	}, cfg.Dt)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func listParams(cmd *cobra.Command, args []string) error {
	models := physics.Classes()
	if len(args) > 0 {
		models = args[:1]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPARAM\tDEFAULT\tOUTPUTS")
	for _, m := range models {
		defaults, err := physics.DefaultParams(m)
		if err != nil {
			return err
		}
		outputs := strings.Join(physics.OutputPorts(m), ",")
		for _, k := range sortedKeys(defaults) {
			fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", m, k, defaults[k], outputs)
		}
	}
	return w.Flush()
}
