package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/clocksmith/benzo/internal/a2a"
	"github.com/clocksmith/benzo/internal/advisor"
	"github.com/clocksmith/benzo/internal/config"
	"github.com/clocksmith/benzo/internal/graph"
	"github.com/clocksmith/benzo/internal/metrics"
	"github.com/clocksmith/benzo/internal/script"
)

// app carries what PersistentPreRunE builds for the subcommands.
type app struct {
	cfg     *config.ProjectConfig
	logger  *zap.Logger
	metrics *metrics.Collector
	out     io.Writer
}

// discoverTimeout bounds the agent card lookup at startup.
const discoverTimeout = 5 * time.Second

// newAdvisor returns the seeded mock, or a breaker-guarded A2A client when an
// endpoint is configured. The endpoint's agent card, when published, names the
// JSON-RPC URL to post to.
func (a *app) newAdvisor(ctx context.Context) advisor.Advisor {
	ac := a.cfg.Advisor
	if ac.Endpoint == "" {
		return advisor.NewMock(ac.Seed)
	}
	client := a2a.NewHTTPClient(a2a.WithTimeout(ac.Timeout()))
	dctx, cancel := context.WithTimeout(ctx, discoverTimeout)
	endpoint, card, err := advisor.ResolveEndpoint(dctx, client, ac.Endpoint)
	cancel()
	if err != nil {
		a.logger.Warn("advisor agent card unavailable", zap.String("endpoint", ac.Endpoint), zap.Error(err))
	} else {
		a.logger.Info("discovered advisor agent",
			zap.String("name", card.Name), zap.String("version", card.Version), zap.String("rpc", endpoint))
	}
	bc := advisor.DefaultBreakerConfig("advisor")
	bc.MaxRequests = ac.Breaker.MaxRequests
	bc.Interval = time.Duration(ac.Breaker.IntervalMs) * time.Millisecond
	bc.Timeout = time.Duration(ac.Breaker.TimeoutMs) * time.Millisecond
	bc.FailureThreshold = ac.Breaker.FailureThreshold
	a.logger.Info("using remote advisor", zap.String("endpoint", endpoint))
	return advisor.NewBreaker(advisor.NewRemote(client, endpoint), bc, a.logger)
}

// newStore builds a store wired to the logger, metrics and adv. Extra sinks
// receive every event after the log sink.
func (a *app) newStore(adv advisor.Advisor, sinks ...graph.Sink) *graph.Store {
	all := graph.MultiSink{graph.LogSink(a.logger)}
	for _, s := range sinks {
		if s != nil {
			all = append(all, s)
		}
	}
	return graph.NewStore(
		graph.WithSink(all),
		graph.WithLogger(a.logger),
		graph.WithTaskSuggester(advisor.NewSuggester(adv)),
		graph.WithCanvas(graph.Canvas{Width: a.cfg.Canvas.Width, Height: a.cfg.Canvas.Height}),
		graph.WithCacheObserver(a.metrics.PathLookup),
	)
}

// library returns the built-in scripts merged with the configured scripts directory.
func (a *app) library() (script.Library, error) {
	lib := script.Builtin()
	if a.cfg.ScriptsDir == "" {
		return lib, nil
	}
	extra, err := script.LoadDir(a.cfg.ScriptsDir)
	if err != nil {
		return nil, fmt.Errorf("load scripts from %s: %w", a.cfg.ScriptsDir, err)
	}
	lib.Merge(extra)
	return lib, nil
}

func (a *app) newSession(store *graph.Store, lib script.Library, opts ...script.SessionOption) *script.Session {
	base := []script.SessionOption{
		script.WithLibrary(lib),
		script.WithSessionLogger(a.logger),
		script.WithObserver(a.metrics),
		script.WithSpeed(a.cfg.PlaySpeed()),
	}
	return script.NewSession(store, append(base, opts...)...)
}

// resolveScript finds ref in lib, or loads it from disk when ref names a
// script file. A file holding several scripts yields the first by name.
func resolveScript(lib script.Library, ref string) (*script.Script, error) {
	if sc, ok := lib[ref]; ok {
		return sc, nil
	}
	if script.Supported(ref) {
		if _, err := os.Stat(ref); err == nil {
			fileLib, err := script.LoadFile(ref)
			if err != nil {
				return nil, err
			}
			names := fileLib.Names()
			if len(names) == 0 {
				return nil, fmt.Errorf("%s: %w", ref, script.ErrUnknownScript)
			}
			return fileLib[names[0]], nil
		}
	}
	return nil, fmt.Errorf("%q: %w", ref, script.ErrUnknownScript)
}

// runToEnd loads sc and executes every step synchronously.
func runToEnd(ctx context.Context, sess *script.Session, sc *script.Script) error {
	rep := sess.LoadScriptValue(ctx, sc)
	for rep != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		rep, err = sess.StepForward(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}
