package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/goldmine/internal/otel"
)

func (c *cli) eventsCmd() *cobra.Command {
	var (
		tail    int
		follow  bool
		rawJSON bool
		stats   bool
		filter  otel.Filter
		level   string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the JSONL pipeline event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.MinLevel = otel.Level(level)
			path := c.cfg.Log.EventsPath

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open event log %s (run a scan first): %w", path, err)
			}
			defer f.Close()

			events, err := otel.TailFiltered(f, tail, filter)
			if err != nil {
				return err
			}
			if stats {
				fmt.Print(eventStats(events))
				return nil
			}
			for _, e := range events {
				fmt.Println(formatEvent(e, rawJSON))
			}
			if !follow {
				return nil
			}
			if tail <= 0 {
				if _, err := f.Seek(0, io.SeekEnd); err != nil {
					return err
				}
			}
			return followEvents(cmd, f, filter, rawJSON)
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 50, "number of recent events to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new events")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print raw JSON lines")
	cmd.Flags().BoolVar(&stats, "stats", false, "print event counts by kind instead of events")
	cmd.Flags().StringVar(&filter.KindPrefix, "kind", "", "filter by kind prefix (e.g. fetch, stage)")
	cmd.Flags().StringVar(&level, "level", "", "minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&filter.Comp, "comp", "", "filter by component")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "filter by run id")
	return cmd
}

// followEvents polls f for appended lines until the command is canceled.
func followEvents(cmd *cobra.Command, f *os.File, filter otel.Filter, rawJSON bool) error {
	ctx := cmd.Context()
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return err
		}
		var e otel.Event
		if json.Unmarshal(line, &e) != nil || !filter.Match(e) {
			continue
		}
		fmt.Println(formatEvent(e, rawJSON))
	}
}

// eventStats summarizes events as one "kind count" line per kind, busiest
// first.
func eventStats(events []otel.Event) string {
	ring := otel.NewRingBuffer(max(len(events), 1))
	for _, e := range events {
		ring.Push(e)
	}
	counts := ring.Stats()

	kinds := make([]otel.EventKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})

	var b strings.Builder
	for _, k := range kinds {
		fmt.Fprintf(&b, "%-20s %d\n", k, counts[k])
	}
	fmt.Fprintf(&b, "%-20s %d\n", "total", len(events))
	return b.String()
}

func formatEvent(e otel.Event, rawJSON bool) string {
	if rawJSON {
		b, err := json.Marshal(e)
		if err != nil {
			return ""
		}
		return string(b)
	}

	lvl := strings.ToUpper(string(e.Level))
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-8s] %-20s", e.Time.Local().Format("15:04:05.000"), lvl, e.Comp, e.Kind)}

	if e.Msg != "" {
		parts = append(parts, "- "+e.Msg)
	}
	if e.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(e.DurMs), e.DurMs))
	}
	if e.Stage != "" {
		parts = append(parts, "stage="+e.Stage)
	}
	if e.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", e.Count))
	}
	if e.Channel != "" {
		parts = append(parts, "ch="+e.Channel)
	}
	if e.Topic != "" {
		parts = append(parts, fmt.Sprintf("topic=%q", e.Topic))
	}
	if e.Reason != "" {
		parts = append(parts, "reason="+e.Reason)
	}
	if e.RunID != "" {
		parts = append(parts, "run="+e.RunID)
	}
	if e.Err != "" {
		parts = append(parts, "err="+e.Err)
	}
	return strings.Join(parts, " ")
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
