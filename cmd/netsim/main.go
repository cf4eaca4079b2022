package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/netsim/internal/automation"
	"github.com/san-kum/netsim/internal/config"
	"github.com/san-kum/netsim/internal/export"
	"github.com/san-kum/netsim/internal/metrics"
	"github.com/san-kum/netsim/internal/report"
	"github.com/san-kum/netsim/internal/sim"
	"github.com/san-kum/netsim/internal/storage"
	"github.com/san-kum/netsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	mode       string
	workers    int
	steps      int
	seed       int64
	logLevel   string
	label      string
	plotWidth  int
	plotHeight int
	svgPath    string
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepN     int
	parallel   int
	trials     int
)

var presetInfo = map[string]string{
	"lattice":     "small hookean lattice, threshold breaking only",
	"cracked":     "default network with a rectangular crack",
	"rate-damage": "force-dependent rupture without a stretch threshold",
	"kinetic":     "bonds carrying their own kinetic constants",
	"long-range":  "default network plus long bonds along y",
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "netsim",
		Short: "tensile loading of damageable bond networks",
		Long: `netsim pulls a plate of nodes away from a clamped one and relaxes
the bond network to equilibrium after every displacement step, breaking
bonds by stretch threshold or force-dependent rupture rates.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a loading simulation",
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the final network as SVG")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with a live terminal view",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "plot plate force and remaining bonds of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	showCmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "summarise a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := storage.New(resolveDataDir(nil)).Load(args[0])
			if err != nil {
				return err
			}
			fmt.Println(report.Summary(*meta))
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, p := range config.ListPresets() {
				fmt.Fprintf(w, "  %s\t%s\n", p, presetInfo[p])
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file with the defaults (or a preset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			return config.Save(args[0], cfg)
		},
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run-id]",
		Short: "export a run to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(resolveDataDir(nil)).ExportJSON(args[0], os.Stdout)
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run the configuration over a range of one parameter",
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "loading.increment", "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.005, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.02, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 4, "number of values")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 2, "concurrent runs")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "repeat the configuration over consecutive seeds",
		RunE:  runEnsemble,
	}
	addRunFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&trials, "trials", 8, "number of seeds")
	ensembleCmd.Flags().IntVar(&parallel, "parallel", 2, "concurrent runs")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, showCmd, presetsCmd, initCmd, exportJSONCmd, sweepCmd, ensembleCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&mode, "mode", "serial", "execution mode (serial, distributed)")
	cmd.Flags().IntVar(&workers, "workers", 2, "worker count for distributed mode")
	cmd.Flags().IntVar(&steps, "steps", 0, "load steps (overrides sim_time)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for network and rupture draws")
	cmd.Flags().StringVar(&label, "label", "", "run label")
}

// buildConfig resolves preset, config file and explicitly set flags, in
// increasing order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Run.Mode = mode
	}
	if flags.Changed("workers") {
		cfg.Run.Workers = workers
	}
	if flags.Changed("steps") {
		cfg.Run.SimTime = float64(steps) * cfg.Run.TimeStep
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
		cfg.Kinetics.Seed = seed
	}
	if flags.Changed("label") {
		cfg.Output.Label = label
	}
	cfg.Output.Dir = resolveDataDir(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveDataDir(cfg *config.Config) string {
	switch {
	case dataDir != "":
		return dataDir
	case cfg != nil && cfg.Output.Dir != "":
		return cfg.Output.Dir
	}
	return config.DefaultConfig().Output.Dir
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := report.NewLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ms := metrics.Standard(cfg.Loading.Axis)
	res, run, err := execute(ctx, cfg, logger, ms)
	if err != nil {
		return err
	}
	switch {
	case res.Aborted:
		logger.Warn("run aborted", "reason", res.StopReason)
		return nil
	case res.History == nil:
		logger.Warn("network failed before loading", "reason", res.StopReason)
		return nil
	}
	fmt.Println(report.Summary(run.Meta))
	for _, m := range ms {
		fmt.Println(report.Label.Render(m.Name()) + report.Value.Render(fmt.Sprintf("%.4g", m.Value())))
	}
	fmt.Printf("\nrun saved: %s\n", run.Dir())

	if svgPath != "" && res.Final != nil {
		f, err := os.Create(svgPath)
		if err != nil {
			return err
		}
		defer f.Close()
		opt := export.DefaultSVGOptions()
		opt.ShowBroken = true
		if err := export.NetworkSVG(f, res.Final, opt); err != nil {
			return err
		}
		fmt.Printf("network written: %s\n", svgPath)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := report.NewLogger(io.Discard, logLevel)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("netsim %s", strings.Join(nonEmpty(preset, cfg.Run.Mode), " "))
	var run *storage.Run
	res, err := tui.Run(context.Background(), title, cfg.Run.Steps(), cfg.Loading.Axis,
		func(ctx context.Context, obs sim.Observer) (*sim.Result, error) {
			res, r, err := execute(ctx, cfg, logger, obs)
			run = r
			return res, err
		})
	if err != nil {
		return err
	}
	if res != nil && !res.Aborted && run != nil {
		fmt.Printf("run saved: %s\n", run.Dir())
	}
	return nil
}

func nonEmpty(vals ...string) []string {
	out := vals[:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(resolveDataDir(nil)).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMODE\tWORKERS\tSTEPS\tBONDS\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%d/%d\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Mode,
			run.Workers,
			run.StepsRun, run.Steps,
			run.FinalEdges, run.Edges,
			status(run.Stopped, run.StopReason),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(resolveDataDir(nil))
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	forces, err := st.LoadForces(args[0])
	if err != nil {
		return err
	}
	edges, err := st.LoadEdges(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s, %d steps)\n\n", meta.ID, meta.Mode, meta.StepsRun)
	for _, p := range report.ForcePlots(forces, plotWidth, plotHeight) {
		fmt.Println(p)
		fmt.Println()
	}
	fmt.Println(report.EdgePlot(edges, plotWidth, plotHeight))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := report.NewLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &automation.Runner{Base: cfg, Parallel: parallel, Logger: logger}
	results, err := r.Sweep(ctx, automation.ParameterSweep{
		Param: sweepParam, Min: sweepMin, Max: sweepMax, NumSteps: sweepN,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tPEAK FORCE\tDAMAGE\tCONVERGED\tSTATUS\n", strings.ToUpper(sweepParam))
	for _, res := range results {
		fmt.Fprintf(w, "%.4g\t%d\t%.4g\t%.3f\t%.3f\t%s\n",
			res.Value, res.Steps,
			res.Metrics["peak_force"], res.Metrics["damage"], res.Metrics["converged_fraction"],
			status(res.Stopped, res.StopReason))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if best, ok := automation.Best(results, "peak_force", true); ok {
		fmt.Printf("\nstrongest: %s=%.4g (peak force %.4g)\n", sweepParam, best.Value, best.Metrics["peak_force"])
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := report.NewLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &automation.Runner{Base: cfg, Parallel: parallel, Logger: logger}
	results, err := r.Ensemble(ctx, trials, cfg.Run.Seed)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tPEAK FORCE\tDAMAGE\tSTATUS")
	for _, res := range results {
		fmt.Fprintf(w, "%d\t%d\t%.4g\t%.3f\t%s\n",
			res.Seed, res.Steps, res.Metrics["peak_force"], res.Metrics["damage"],
			status(res.Stopped, res.StopReason))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, m := range []string{"peak_force", "damage"} {
		mean, std := automation.Stats(results, m)
		fmt.Printf("%s: %.4g ± %.2g\n", m, mean, std)
	}
	return nil
}

func status(stopped bool, reason string) string {
	if stopped {
		return "halted: " + reason
	}
	return "completed"
}
