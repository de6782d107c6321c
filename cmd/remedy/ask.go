package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

func askCMD(cfgPath *string) *cobra.Command {
	var offline, markdown bool
	ask := &cobra.Command{
		Use:   "ask [question]",
		Short: "Research one question and print its events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, *cfgPath, false)
			if err != nil {
				return err
			}
			defer a.logger.Sync() //nolint:errcheck

			question := strings.Join(args, " ")
			if !offline && a.cfg.MissingAPIKey() {
				return errors.New("YOU_API_KEY is not configured; set REMEDY_YOU_API_KEY or pass --offline")
			}
			return runAsk(ctx, a.orchestrator, core.Request{Question: question, Offline: offline}, cmd.OutOrStdout(), markdown)
		},
	}
	ask.Flags().BoolVar(&offline, "offline", false, "skip all network calls and return the degraded report")
	ask.Flags().BoolVar(&markdown, "markdown", false, "print only the final report markdown")
	return ask
}

type researcher interface {
	Run(ctx context.Context, req core.Request, sink core.Sink) error
}

// runAsk streams events to out as JSON lines, or with markdown set prints
// the final analysis once the run completes.
func runAsk(ctx context.Context, r researcher, req core.Request, out io.Writer, markdown bool) error {
	if !markdown {
		return r.Run(ctx, req, core.NewJSONLinesSink(out))
	}
	var report *core.HealthReport
	var lastErr string
	sink := core.SinkFunc(func(_ context.Context, ev core.Event) error {
		switch ev.Type {
		case core.EventComplete:
			report = ev.Report
		case core.EventError:
			lastErr = ev.Message
		}
		return nil
	})
	if err := r.Run(ctx, req, sink); err != nil {
		return err
	}
	if report == nil {
		if lastErr == "" {
			lastErr = "run ended without a report"
		}
		return errors.New(lastErr)
	}
	_, err := fmt.Fprintf(out, "%s\n\n---\nSafety: %s | Evidence: %s | Risk score: %d\n\n%s\n",
		report.DetailedAnalysis, report.SafetyRating, report.EvidenceLevel, report.RiskScore, report.Disclaimer)
	return err
}
