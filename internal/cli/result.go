package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"agentscope/internal/domain"
)

var validStatuses = map[domain.TestStatus]bool{
	domain.TestStatusPassed:  true,
	domain.TestStatusFailed:  true,
	domain.TestStatusWarning: true,
	domain.TestStatusError:   true,
}

func newResultCmd(a *app) *cobra.Command {
	var (
		testID, sessionID, status, summary, severity string
		issues                                       []string
		execTime                                     float64
	)
	cmd := &cobra.Command{
		Use:   "result <analysis-id>",
		Short: "Record a test result",
		Long: `Record the outcome of one test case. Each --issue becomes a
recommendation, which marks the test's targets with a warning.

Examples:
  agentscope result an-1 --test tc1 --session s1 --status passed
  agentscope result an-1 --test tc2 --status failed --summary "wrong route"
  agentscope result an-1 --test tc3 --status passed --issue "retries unbounded"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := domain.TestStatus(strings.ToLower(strings.TrimSpace(status)))
			if !validStatuses[st] {
				return fmt.Errorf("invalid status %q (want passed, failed, warning or error)", status)
			}
			r := domain.TestResult{
				TestID:        testID,
				SessionID:     sessionID,
				Status:        st,
				ExecutionTime: execTime,
			}
			if summary != "" {
				r.Results = &domain.ResultDetails{Summary: summary, IssuesFound: issues}
			}
			for _, issue := range issues {
				r.Recommendations = append(r.Recommendations, domain.Recommendation{Severity: severity, Issue: issue})
			}

			saved, err := a.store.RecordTestResult(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for %s (%s)\n", saved.Status, saved.Key(), saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&testID, "test", "", "test case id")
	cmd.Flags().StringVar(&sessionID, "session", "", "test session id")
	cmd.Flags().StringVar(&status, "status", "", "passed, failed, warning or error")
	cmd.Flags().StringVar(&summary, "summary", "", "result summary")
	cmd.Flags().StringSliceVar(&issues, "issue", nil, "issue found; repeatable")
	cmd.Flags().StringVar(&severity, "severity", "medium", "severity of the issues")
	cmd.Flags().Float64Var(&execTime, "time", 0, "execution time in seconds")
	_ = cmd.MarkFlagRequired("test")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newRunningCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "running <analysis-id> [test-key]",
		Short: "Mark the test currently executing, or clear it",
		Long: `Mark the test currently executing so monitors follow it. The key is the
session-qualified test id (session-test) or the bare test id. Omit it to
clear the marker.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 2 {
				key = args[1]
			}
			if err := a.store.SetRunningTest(cmd.Context(), args[0], key); err != nil {
				return err
			}
			if key == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared running test for %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Running %s in %s\n", key, args[0])
			return nil
		},
	}
}
