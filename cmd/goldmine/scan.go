package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/goldmine/internal/app"
	"github.com/abelbrown/goldmine/internal/logging"
	"github.com/abelbrown/goldmine/internal/metrics"
	"github.com/abelbrown/goldmine/internal/pipeline"
	"github.com/abelbrown/goldmine/internal/ui"
)

type scanFlags struct {
	window   string
	channels []string
	plain    bool
	noCache  bool
	width    int
}

func (c *cli) scanCmd() *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan <topic>",
		Short: "Scan a topic and rank the best opportunities",
		Long: `Fetches recent posts for the topic, keeps the ones that express a need,
scores and classifies them, and drafts a blueprint for each of the top ten.

Channels are "r/<subreddit>" or "feed:<url>". Without --channels the topic
picks them (see 'goldmine topics').`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScan(cmd.Context(), strings.Join(args, " "), f)
		},
	}

	cmd.Flags().StringVarP(&f.window, "window", "w", "", "recency window: day, week or month (default from config)")
	cmd.Flags().StringSliceVarP(&f.channels, "channels", "c", nil, "channels to scan, comma separated")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "plain text output, no progress view")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "ignore cached results")
	cmd.Flags().IntVar(&f.width, "width", 100, "output width")
	return cmd
}

func (c *cli) runScan(ctx context.Context, topic string, f scanFlags) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	defer svc.Close()

	if listen := c.cfg.Metrics.Listen; listen != "" && svc.Metrics() != nil {
		stop := serveMetrics(listen, svc.Metrics())
		defer stop()
	}

	req := app.ScanRequest{
		UserID:   c.user,
		Topic:    topic,
		Channels: f.channels,
		Window:   f.window,
		NoCache:  f.noCache,
	}

	if f.plain {
		res, err := svc.Scan(ctx, req)
		if err != nil {
			return scanError(err)
		}
		fmt.Print(ui.RenderPlain(res.Analysis, res.Cached))
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(ui.NewProgress(topic, svc.Events(), cancel),
		tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	req.Observer = func(e pipeline.StageEvent) { prog.Send(ui.StageMsg{StageEvent: e}) }
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err := svc.Scan(ctx, req)
		prog.Send(ui.DoneMsg{Result: res.Analysis, Cached: res.Cached, Err: err})
	}()

	final, err := prog.Run()
	// Stop a scan the user walked away from before the store closes.
	cancel()
	<-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("progress view: %w", err)
	}
	p, ok := final.(ui.Progress)
	if !ok || !p.Done() {
		return context.Canceled
	}

	result, cached, err := p.Result()
	if err != nil {
		return scanError(err)
	}
	fmt.Print(ui.RenderFindings(result, cached, f.width))
	return nil
}

func scanError(err error) error {
	if errors.Is(err, pipeline.ErrInvalidInput) {
		return fmt.Errorf("%w (see 'goldmine scan --help')", err)
	}
	return err
}

// serveMetrics exposes /metrics on addr until the returned func is called.
func serveMetrics(addr string, m *metrics.Pipeline) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn("Metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logging.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
