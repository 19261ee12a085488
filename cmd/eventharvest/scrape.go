package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/log"
	"github.com/findrandomevents/harvest/output"
	"github.com/findrandomevents/harvest/service"
)

func scrapeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Harvest events from seed sources once",
		Example: `  eventharvest scrape --event 123 --group 456 --search "jazz berlin" --output events.json
  eventharvest scrape --seeds seeds.json --aws=false --db postgres://localhost/harvest`,
		Args: cobra.NoArgs,
		RunE: runScrape,
	}

	addHarvestFlags(cmd)

	f := cmd.Flags()
	f.StringArray("event", nil, "event ID to harvest (repeatable)")
	f.StringArray("group", nil, "group ID whose events to harvest (repeatable)")
	f.StringArray("page", nil, "page ID whose events to harvest (repeatable)")
	f.StringArray("search", nil, "search query whose events to harvest (repeatable)")
	f.String("seeds", "", `JSON file of seeds, e.g. {"eventID":["123"],"group":["456"]}`)
	f.String("output", "", "write harvested events to this file as indented JSON")
	f.Bool("progress", true, "show a progress indicator")
	f.Bool("table", false, "print a table of harvested events")

	return cmd
}

func seedsFromFlags(cmd *cobra.Command) (harvest.SeedSet, error) {
	seeds := harvest.SeedSet{}

	if path := viper.GetString("seeds"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &seeds); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	for flag, kind := range map[string]harvest.SourceKind{
		"event":  harvest.EventIDKind,
		"group":  harvest.GroupKind,
		"page":   harvest.PageKind,
		"search": harvest.SearchQueryKind,
	} {
		values, err := cmd.Flags().GetStringArray(flag)
		if err != nil {
			return nil, err
		}
		seeds.Add(kind, values...)
	}

	return seeds, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	ctx := log.ToContext(cmd.Context(), logger)

	seeds, err := seedsFromFlags(cmd)
	if err != nil {
		return err
	}
	if seeds.Len() == 0 {
		return fmt.Errorf("no seeds: pass --event, --group, --page, --search or --seeds")
	}

	opts := harvestOptions()
	if err := opts.Validate(); err != nil {
		return err
	}

	harvester := service.NewHarvester(opts)

	if viper.GetBool("progress") {
		pw, tracker := newProgress()
		go pw.Render()
		defer func() {
			tracker.MarkAsDone()
			pw.Stop()
			for pw.IsRenderInProgress() {
				time.Sleep(10 * time.Millisecond)
			}
		}()

		harvester.OnProgress = func(p service.Progress) {
			tracker.UpdateTotal(int64(p.Discovered))
			tracker.Increment(1)
		}
	}

	start := time.Now()
	events, err := harvester.Harvest(ctx, seeds)
	if err != nil {
		return err
	}
	logger.Info("harvested",
		zap.Int("events", len(events)),
		zap.Duration("took", time.Since(start)))

	if opts.OutputFile != "" {
		output.Save(ctx, opts.OutputFile, events)
	}

	if dbURL := viper.GetString("db"); dbURL != "" {
		eventStore, err := openEventStore(cmd, dbURL)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer eventStore.DB.Close()

		now := time.Now()
		for _, event := range events {
			if err := eventStore.Save(ctx, event, harvest.IsBadEvent(event), now); err != nil {
				logger.Error("save event failed", zap.String("eventID", string(event.ID)), zap.Error(err))
			}
		}
	}

	if viper.GetBool("table") {
		printEvents(events)
	}

	return nil
}

func newProgress() (progress.Writer, *progress.Tracker) {
	pw := progress.NewWriter()
	pw.SetOutputWriter(os.Stderr)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetMessageLength(20)
	pw.SetUpdateFrequency(100 * time.Millisecond)

	tracker := &progress.Tracker{
		Message:          "fetching events",
		AutoStopDisabled: true,
	}
	pw.AppendTracker(tracker)

	return pw, tracker
}

func printEvents(events []harvest.EventRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Name", "Start", "Place", "Bad"})
	for _, e := range events {
		start := ""
		if e.Timestamp.Start != nil {
			start = time.Unix(*e.Timestamp.Start, 0).UTC().Format(time.RFC3339)
		}
		t.AppendRow(table.Row{e.ID, e.Name, start, e.Location.Name, harvest.IsBadEvent(e)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d events", len(events))})

	t.Render()
}
