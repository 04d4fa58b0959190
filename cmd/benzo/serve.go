package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clocksmith/benzo/internal/advisor"
	"github.com/clocksmith/benzo/internal/mcptools"
	"github.com/clocksmith/benzo/internal/workflow"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose scripts, graph state and A* as MCP tools (stdio unless --addr is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			adv := a.newAdvisor(cmd.Context())
			store := a.newStore(adv)
			sess := a.newSession(store, lib)
			defer sess.Stop()
			eng := workflow.New(store, adv, workflow.WithLogger(a.logger))
			svc := mcptools.NewGraphService(sess, eng)

			if addr == "" {
				return mcptools.RunMCPServerStdio(cmd.Context(), svc)
			}
			a.logger.Info("serving MCP over HTTP", zap.String("addr", addr))
			return mcptools.RunMCPServer(cmd.Context(), svc, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for streamable HTTP")
	return cmd
}

func newServeAdvisorCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-advisor",
		Short: "Serve the seeded mock advisor as an A2A agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			agent := advisor.NewAgent(advisor.NewMock(a.cfg.Advisor.Seed), version, a.logger)
			bound, err := agent.Server().Start(ctx, addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "advisor listening on %s\n", bound)
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return agent.Server().Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9100", "listen address")
	return cmd
}
