package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dyngraph/internal/analysis"
	"github.com/san-kum/dyngraph/internal/storage"
	"github.com/san-kum/dyngraph/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTEPS\tDT\tINTEG\tCTRL")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Class,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.StepsTaken,
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Controller,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadTable(runID)
	if err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(viz.Title.Render(meta.ID))
	fmt.Printf("model: %s(%s)\n", meta.Class, meta.Entity)
	fmt.Printf("samples: %d\n\n", len(table.Rows))

	columns := []string{column}
	if column == "" {
		columns = columns[:0]
		for _, h := range table.Header {
			if len(h) > 1 && h[0] == 'x' {
				columns = append(columns, h)
			}
		}
	}

	for _, col := range columns {
		data, err := table.Column(col)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption(meta.Class, col)),
		))
		fmt.Println()
	}
	return nil
}

func caption(class, col string) string {
	labels := map[string]map[string]string{
		"TableCart":        {"x0": "cart position"},
		"InvertedPendulum": {"x0": "cart position", "x1": "pole angle", "x2": "cart velocity", "x3": "pole angular velocity"},
	}
	if l, ok := labels[class][col]; ok {
		return l
	}
	return col + " vs time"
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	table, err := st.LoadTable(args[0])
	if err != nil {
		return err
	}
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(table.Header); err != nil {
		return err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return err
	}
	return w.Error()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadTable(runID)
	if err != nil {
		return err
	}

	col := column
	if col == "" {
		col = "x0"
		if meta.Class == "InvertedPendulum" {
			col = "x1"
		}
	}
	data, err := table.Column(col)
	if err != nil {
		return err
	}
	bins, err := analysis.Spectrum(data, meta.Dt)
	if err != nil {
		return err
	}

	peak := analysis.DominantFrequency(bins)
	fmt.Println(viz.Title.Render(meta.ID))
	fmt.Printf("column: %s\n", caption(meta.Class, col))
	fmt.Printf("dominant frequency: %.4f Hz (period %.4fs, amplitude %.6f)\n\n", peak.Freq, 1/peak.Freq, peak.Power)

	powers := analysis.Powers(bins)
	if len(powers) > 200 {
		powers = powers[:200]
	}
	fmt.Println(asciigraph.Plot(powers,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("amplitude spectrum"),
	))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	table, err := st.LoadTable(args[0])
	if err != nil {
		return err
	}

	xs, err := table.Column(xAxis)
	if err != nil {
		return err
	}
	ys, err := table.Column(yAxis)
	if err != nil {
		return err
	}
	portrait, err := analysis.NewPhasePortrait(xAxis, xs, yAxis, ys)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render(meta.ID))
	fmt.Printf("%s vs %s\n\n", caption(meta.Class, yAxis), caption(meta.Class, xAxis))
	fmt.Print(portrait.ASCII(80, 24))
	return nil
}
