package main

import (
	"context"
	"encoding/json"
	"strings"

	auditdomain "github.com/smallbiznis/menusready/internal/audit/domain"
	"github.com/smallbiznis/menusready/internal/clock"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/metricspush"
	publicationdomain "github.com/smallbiznis/menusready/internal/publication/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type batchDeps struct {
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	publications publicationdomain.Service
	audit        auditdomain.Service
}

func (d *batchDeps) populate() fx.Option {
	return fx.Populate(&d.cfg, &d.log, &d.clock, &d.publications, &d.audit)
}

// push sends run gauges and logs failures. A failed push never fails the run.
func (d *batchDeps) push(ctx context.Context, m *metricspush.RunMetrics) {
	if err := m.Push(ctx, metricspush.NewPusher(d.cfg, d.log)); err != nil {
		d.log.Warn("metrics push failed", zap.Error(err))
	}
}

func newRegenerateCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "regenerate <slug>",
		Short: "Regenerate and redeliver the artifacts of a paid menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var deps batchDeps
			slug := strings.TrimSpace(args[0])

			return runOnce(cmd.Context(), func(ctx context.Context) error {
				metrics := metricspush.NewRunMetrics("regenerate")
				start := deps.clock.Now()

				outcome, err := deps.publications.Regenerate(ctx, slug, actor)
				finished := deps.clock.Now()
				metrics.RecordOutcome(err == nil && outcome.Succeeded(), finished.Sub(start), finished)
				deps.push(ctx, metrics)
				if err != nil {
					return err
				}

				_ = deps.audit.Record(ctx, auditdomain.Entry{
					ActorType:  auditdomain.ActorTypeSystem,
					ActorID:    actor,
					Action:     auditdomain.ActionMenuRegenerate,
					TargetType: auditdomain.TargetMenu,
					TargetID:   outcome.Slug,
					Metadata:   map[string]any{"status": string(outcome.Status), "stage": string(outcome.Stage)},
				})
				deps.log.Info("regenerate finished",
					zap.String("slug", outcome.Slug),
					zap.String("status", string(outcome.Status)),
					zap.String("stage", string(outcome.Stage)),
				)
				return writeJSON(cmd, outcome)
			}, deps.populate())
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "cli", "Actor recorded on the regeneration")
	return cmd
}

func newRetryDeliveriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-deliveries",
		Short: "Run one delivery sweep and push run metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var deps batchDeps

			return runOnce(cmd.Context(), func(ctx context.Context) error {
				metrics := metricspush.NewRunMetrics("retry-deliveries")
				start := deps.clock.Now()

				result, err := deps.publications.RetryDeliveries(ctx)
				if err != nil {
					return err
				}
				finished := deps.clock.Now()
				metrics.RecordSweep(result, finished.Sub(start), finished)
				deps.push(ctx, metrics)

				_ = deps.audit.Record(ctx, auditdomain.Entry{
					ActorType:  auditdomain.ActorTypeSystem,
					ActorID:    "retry-deliveries",
					Action:     auditdomain.ActionDeliveriesRetry,
					TargetType: auditdomain.TargetDeliverySweep,
					Metadata:   map[string]any{"due": result.Due, "succeeded": result.Succeeded, "failed": result.Failed},
				})
				deps.log.Info("delivery sweep finished",
					zap.Int("due", result.Due),
					zap.Int("succeeded", result.Succeeded),
					zap.Int("failed", result.Failed),
					zap.Bool("locked", result.Locked),
				)
				return writeJSON(cmd, result)
			}, deps.populate())
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
