package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/client"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/engine"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/simulator"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/statssync"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream the live feed to the terminal",
	Long: `watch runs the feed engine in the foreground and re-renders the
derived view every time it changes. With --output json or yaml it prints
one snapshot and exits.`,
	Example: `  # simulated feed, high-risk events only
  cspmfeed watch --risk-level HIGH

  # against a real backend
  cspmfeed watch --url http://localhost:5000 --last hour

  # one snapshot as yaml
  cspmfeed watch --output yaml --limit 20`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("url", "", "backend URL (empty runs the simulator)")
	watchCmd.Flags().String("token", "", "backend bearer token")
	watchCmd.Flags().String("risk-level", "", "filter: HIGH, MEDIUM, or LOW")
	watchCmd.Flags().String("identity", "", "filter: identity type, e.g. Root")
	watchCmd.Flags().String("last", "", "filter: time window (hour, day, week, month)")
	watchCmd.Flags().String("query", "", "filter: free-text match")
	watchCmd.Flags().String("output", "live", "output format: live, json, yaml")
	watchCmd.Flags().Int("limit", 25, "max records to render")

	rootCmd.AddCommand(watchCmd)
}

var (
	highColor   = color.New(color.FgRed, color.Bold)
	mediumColor = color.New(color.FgYellow)
	lowColor    = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
)

func runWatch(cmd *cobra.Command, args []string) error {
	var records engine.RecordSource
	var stats statssync.StatsSource
	var sim engine.EventSimulator

	if url, _ := cmd.Flags().GetString("url"); url != "" {
		token, _ := cmd.Flags().GetString("token")
		backend := client.New(url, token)
		records, stats, sim = backend, backend, backend
	} else {
		src := simulator.New(cfg.Ingest.SimBaseline, time.Now().UnixNano(), nil)
		records, stats, sim = src, src, src
	}

	eng := engine.New(records, stats, engine.Options{
		PageSize:  cfg.Backend.PageSize,
		Simulator: sim,
	})
	defer eng.Close()

	eng.SetFilter(filterFromFlags(cmd))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := eng.SetPage(ctx, 1)
	cancel()
	if err != nil {
		return fmt.Errorf("initial fetch failed: %w", err)
	}

	limit, _ := cmd.Flags().GetInt("limit")

	switch format, _ := cmd.Flags().GetString("output"); format {
	case "json":
		return printSnapshot(eng, limit, json.Marshal)
	case "yaml":
		return printSnapshot(eng, limit, yaml.Marshal)
	}

	changes, unsubscribe := eng.Subscribe()
	defer unsubscribe()

	eng.StartIngestion()

	render(eng.GetView(), limit)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			eng.StopIngestion()
			return nil
		case change := <-changes:
			render(eng.GetView(), limit)
			dimColor.Printf("-- %d matching, %d pages, %s\n", change.Count, change.TotalPages, change.GeneratedAt)
		}
	}
}

func filterFromFlags(cmd *cobra.Command) models.FilterCriteria {
	level, _ := cmd.Flags().GetString("risk-level")
	identity, _ := cmd.Flags().GetString("identity")
	window, _ := cmd.Flags().GetString("last")
	query, _ := cmd.Flags().GetString("query")

	return models.FilterCriteria{
		RiskLevel:    models.RiskLevel(level),
		IdentityType: identity,
		Window:       models.TimeWindow(window),
		Query:        query,
	}
}

func printSnapshot(eng *engine.Engine, limit int, marshal func(interface{}) ([]byte, error)) error {
	view := eng.GetView()
	if len(view) > limit {
		view = view[:limit]
	}

	data, err := marshal(view)
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}

func render(view []models.EventRecord, limit int) {
	if len(view) > limit {
		view = view[:limit]
	}

	for i := range view {
		r := &view[i]

		line := fmt.Sprintf("%-20s %-22s %-14s %-16s %5.1f", r.Timestamp, r.EventName, r.IdentityType, r.SourceIP, r.RiskScore)

		switch r.RiskLevel {
		case models.RiskHigh:
			highColor.Printf("%s  HIGH", line)
		case models.RiskMedium:
			mediumColor.Printf("%s  MEDIUM", line)
		default:
			lowColor.Printf("%s  %s", line, r.RiskLevel)
		}

		if r.Anomaly {
			highColor.Print("  [anomaly]")
		}
		fmt.Println()
	}
}
