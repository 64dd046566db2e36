package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agentscope/internal/canvas"
	"agentscope/internal/client"
	"agentscope/internal/domain"
)

// poller mirrors one stored analysis into canvas events. Only changes since
// the previous poll are emitted, so highlights flash once per result.
type poller struct {
	client     *client.Client
	analysisID string
	logger     *slog.Logger

	loaded  bool
	updated time.Time
	running string
	seen    map[string]struct{}
}

func newPoller(c *client.Client, analysisID string, logger *slog.Logger) *poller {
	return &poller{
		client:     c,
		analysisID: analysisID,
		logger:     logger,
		seen:       map[string]struct{}{},
	}
}

func (p *poller) poll(ctx context.Context) ([]canvas.Event, error) {
	a, err := p.client.GetAnalysis(ctx, p.analysisID)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	results, err := p.client.ListResults(ctx, p.analysisID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return p.diff(a, results), nil
}

// diff returns the events that bring the canvas from the last seen state to
// the given one. A new load is always followed by the full result history.
func (p *poller) diff(a domain.Analysis, results []domain.TestResult) []canvas.Event {
	var events []canvas.Event
	if !p.loaded || !a.UpdatedAt.Equal(p.updated) {
		events = append(events, canvas.LoadAnalysis{Analysis: a})
		p.updated = a.UpdatedAt
		p.loaded = true
	}
	for _, r := range results {
		id := resultIdentity(r)
		if _, ok := p.seen[id]; ok {
			continue
		}
		p.seen[id] = struct{}{}
		events = append(events, canvas.ResultArrived{Result: r})
	}
	if a.RunningTest != p.running {
		p.running = a.RunningTest
		events = append(events, canvas.RunningChanged{Key: a.RunningTest})
	}
	return events
}

func resultIdentity(r domain.TestResult) string {
	if r.ID != "" {
		return r.ID
	}
	return r.Key() + "@" + r.CreatedAt.Format(time.RFC3339Nano)
}

// run polls until ctx is done, handing events to post in order.
func (p *poller) run(ctx context.Context, interval time.Duration, post func(canvas.Event) error, status func(string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		events, err := p.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("monitor poll failed", "analysis", p.analysisID, "error", err)
			status("poll failed: " + err.Error())
		}
		for _, ev := range events {
			if err := post(ev); err != nil {
				p.logger.Warn("monitor event dropped", "event", fmt.Sprintf("%T", ev), "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pickAnalysis resolves the analysis to watch: the explicit id, or the most
// recently updated one.
func pickAnalysis(ctx context.Context, c *client.Client, id string) (domain.Analysis, error) {
	if id != "" {
		return c.GetAnalysis(ctx, id)
	}
	items, err := c.ListAnalyses(ctx)
	if err != nil {
		return domain.Analysis{}, err
	}
	if len(items) == 0 {
		return domain.Analysis{}, fmt.Errorf("no analyses stored; import one with `agentscope import`")
	}
	latest := items[0]
	for _, a := range items[1:] {
		if a.UpdatedAt.After(latest.UpdatedAt) {
			latest = a
		}
	}
	return latest, nil
}
