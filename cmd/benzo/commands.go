package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clocksmith/benzo/internal/advisor"
	"github.com/clocksmith/benzo/internal/export"
	"github.com/clocksmith/benzo/internal/graph"
	"github.com/clocksmith/benzo/internal/script"
	"github.com/clocksmith/benzo/internal/workflow"
)

func newScriptsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List the scripts that can be played",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			for _, name := range lib.Names() {
				fmt.Fprintf(a.out, "%s\t%d steps\n", name, lib[name].Len())
			}
			return nil
		},
	}
}

func newPlayCmd(a *app) *cobra.Command {
	var (
		speed       time.Duration
		metricsAddr string
		watch       bool
		events      bool
	)
	cmd := &cobra.Command{
		Use:   "play <script|file>",
		Short: "Play a script step by step on a timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := a.library()
			if err != nil {
				return err
			}
			sc, err := resolveScript(lib, args[0])
			if err != nil {
				return err
			}
			if watch && !script.Supported(args[0]) {
				return fmt.Errorf("--watch needs a script file, got %q", args[0])
			}

			var stream *graph.Stream
			var wg sync.WaitGroup
			if events {
				stream = graph.NewBlockingStream(0)
				wg.Add(1)
				go func() {
					defer wg.Done()
					printEvents(a, stream.Subscribe())
				}()
			}
			// drainEvents flushes the printer so nothing follows the summary.
			drainEvents := func() {
				if stream != nil {
					stream.Close()
					wg.Wait()
				}
			}

			store := a.newStore(a.newAdvisor(ctx), streamSink(stream))
			opts := []script.SessionOption{
				script.WithStepHook(func(rep script.StepReport) {
					if rep.Message != "" {
						a.logger.Info(rep.Message, zap.String("step", rep.Key))
					}
				}),
			}
			if speed > 0 {
				opts = append(opts, script.WithSpeed(speed))
			}
			sess := a.newSession(store, lib, opts...)
			defer func() {
				sess.Stop()
				drainEvents()
			}()

			if metricsAddr != "" {
				stop := serveMetrics(a, metricsAddr)
				defer stop()
			}

			sess.LoadScriptValue(ctx, sc)
			if err := sess.Play(ctx); err != nil {
				return err
			}

			if !watch {
				if err := sess.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				sess.Stop()
				drainEvents()
				st := sess.State()
				fmt.Fprintf(a.out, "played %s: %d/%d steps, %d nodes\n", st.Script, st.Index+1, st.Total, store.Len())
				return nil
			}

			w := script.NewWatcher(args[0], script.DefaultDebounce, func(l script.Library, err error) {
				if err != nil {
					a.logger.Warn("script reload failed", zap.Error(err))
					return
				}
				next, ok := l[sc.Name]
				if !ok {
					names := l.Names()
					if len(names) == 0 {
						return
					}
					next = l[names[0]]
				}
				a.logger.Info("script reloaded", zap.String("script", next.Name))
				sess.LoadScriptValue(ctx, next)
				if err := sess.Play(ctx); err != nil {
					a.logger.Warn("restart playback", zap.Error(err))
				}
			}, a.logger)
			return w.Run(ctx)
		},
	}
	f := cmd.Flags()
	f.DurationVar(&speed, "speed", 0, "delay between steps (default from config)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while playing")
	f.BoolVar(&watch, "watch", false, "reload and replay the script file when it changes")
	f.BoolVar(&events, "events", false, "print graph events as JSON lines")
	return cmd
}

// streamSink avoids handing a typed nil *Stream to the store as a Sink.
func streamSink(s *graph.Stream) graph.Sink {
	if s == nil {
		return nil
	}
	return s
}

func printEvents(a *app, ch <-chan graph.Event) {
	enc := json.NewEncoder(a.out)
	for e := range ch {
		if err := enc.Encode(e); err != nil {
			a.logger.Warn("encode event", zap.String("event", string(e.Name)), zap.Error(err))
		}
	}
}

// serveMetrics exposes the collector at /metrics until the returned func is called.
func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// playedStore runs the referenced script to the end and returns its store.
func playedStore(ctx context.Context, a *app, ref string) (*graph.Store, *script.Script, error) {
	lib, err := a.library()
	if err != nil {
		return nil, nil, err
	}
	sc, err := resolveScript(lib, ref)
	if err != nil {
		return nil, nil, err
	}
	store := a.newStore(a.newAdvisor(ctx))
	sess := a.newSession(store, lib)
	if err := runToEnd(ctx, sess, sc); err != nil {
		return nil, nil, err
	}
	return store, sc, nil
}

func newDiagramCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "diagram <script|file>",
		Short: "Run a script to the end and print the resulting graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, sc, err := playedStore(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := export.MarshalGraph(store, sc.Name)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(data))
				return nil
			}
			fmt.Fprint(a.out, export.GenerateMermaid(store))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON snapshot instead of Mermaid")
	return cmd
}

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <script|file> <start> <end>",
		Short: "Run a script to the end and print the cheapest path between two nodes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := playedStore(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			res := store.ShortestPath(args[1], args[2])
			if !res.Found() {
				return fmt.Errorf("%s -> %s: %w", args[1], args[2], graph.ErrNoPath)
			}
			fmt.Fprintf(a.out, "%s\tcost %.4g\n", strings.Join(res.Path, " -> "), res.Cost)
			return nil
		},
	}
}

func newWalkCmd(a *app) *cobra.Command {
	var (
		start, end string
		maxSteps   int
		execUnit   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "walk <script|file>",
		Short: "Build a graph from a script, then let the advisor walk it from start to end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := a.library()
			if err != nil {
				return err
			}
			sc, err := resolveScript(lib, args[0])
			if err != nil {
				return err
			}
			adv := a.newAdvisor(ctx)
			store := a.newStore(adv)
			if err := runToEnd(ctx, a.newSession(store, lib), sc); err != nil {
				return err
			}

			eng := workflow.New(store, adv,
				workflow.WithFeedback(advisor.NewMockFeedback(a.cfg.Advisor.Seed)),
				workflow.WithExecUnit(execUnit),
				workflow.WithLogger(a.logger),
			)
			visited, err := eng.Run(ctx, start, end, maxSteps)
			fmt.Fprintln(a.out, strings.Join(visited, " -> "))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&start, "start", graph.StartID, "node to start the walk from")
	f.StringVar(&end, "end", graph.EndID, "node the walk aims for")
	f.IntVar(&maxSteps, "max-steps", 20, "stop after this many moves")
	f.DurationVar(&execUnit, "exec-unit", 0, "simulated duration of one time_estimate unit")
	return cmd
}
