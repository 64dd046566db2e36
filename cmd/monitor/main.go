package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"agentscope/internal/canvas"
	"agentscope/internal/client"
	"agentscope/internal/config"
	"agentscope/internal/highlight"
	"agentscope/internal/render"
)

type embeddedServer struct {
	cmd *exec.Cmd
}

func main() {
	configPath := flag.String("config", "", "config file (default ~/.agentscope/config.toml)")
	addr := flag.String("addr", "", "agentscope server address (default: monitor.addr from config)")
	analysisID := flag.String("analysis", "", "analysis to watch (default: most recently updated)")
	embedded := flag.Bool("embedded", false, "start agentscope serve for the lifetime of the monitor")
	serverBinary := flag.String("server-bin", "", "path to the agentscope binary (optional in embedded mode)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	// stderr shares the terminal with the UI, so logs go to the file only.
	logger, closeLog := config.SetupLogger(cfg.Log, nil)
	defer func() { _ = closeLog() }()

	listen := firstNonEmpty(*addr, cfg.Monitor.Addr)
	c := client.New(listen, 10*time.Second)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var proc *embeddedServer
	if *embedded {
		proc, err = startEmbeddedServer(listen, *serverBinary, *configPath, cfg.Server.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start embedded server: %v\n", err)
			os.Exit(1)
		}
		defer proc.Stop()
	}

	if err := c.WaitHealth(ctx, 30*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "server health check failed: %v\n", err)
		proc.Stop()
		os.Exit(1)
	}
	analysis, err := pickAnalysis(ctx, c, firstNonEmpty(*analysisID, cfg.Monitor.AnalysisID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "select analysis: %v\n", err)
		proc.Stop()
		os.Exit(1)
	}

	if err := run(ctx, cfg, c, analysis.ID, logger); err != nil {
		fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
		proc.Stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, c *client.Client, analysisID string, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cell := render.DefaultCellSize()
	engine := canvas.NewEngine(cfg.Canvas(0, 0), highlight.SystemClock(), logger)
	loop := canvas.NewLoop(engine, 256, logger)

	app := tview.NewApplication()
	view := newCanvasView(loop.Post, cell)

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")

	controlsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	controlsView.SetBorder(true).SetTitle("Controls (f fit, c clear, 1-4 slider, +/- adjust, 0 neutral, q quit)")

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(view, 0, 1, true).
		AddItem(controlsView, 3, 0, false).
		AddItem(statusView, 3, 0, false)

	var lastFrame atomic.Pointer[render.Frame]
	var lastError atomic.Value
	lastError.Store("")

	refreshStatus := func() {
		line := fmt.Sprintf("%s | %s", c.BaseURL(), shortID(analysisID))
		if f := lastFrame.Load(); f != nil {
			line = fmt.Sprintf("%s %s | %s", line, trimLine(f.Title, 32), render.SummaryLine(*f))
		}
		if msg, _ := lastError.Load().(string); msg != "" {
			line += " | [red]" + tview.Escape(msg) + "[-]"
		}
		statusView.SetText(line)
		controlsView.SetText(view.controlsLine())
	}

	var drawPending atomic.Bool
	loop.OnFrame = func(f render.Frame) {
		view.SetFrame(f)
		lastFrame.Store(&f)
		if !drawPending.CompareAndSwap(false, true) {
			return
		}
		// Never block the canvas loop on the UI queue.
		go app.QueueUpdateDraw(func() {
			drawPending.Store(false)
			refreshStatus()
		})
	}

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10, tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				app.Stop()
				return nil
			}
			if view.key(event.Rune()) {
				refreshStatus()
				return nil
			}
		}
		return event
	})

	loop.Start(ctx)
	defer loop.Wait()

	p := newPoller(c, analysisID, logger)
	go p.run(ctx, cfg.PollInterval(), loop.Post, func(msg string) {
		lastError.Store(msg)
	})

	go func() {
		<-ctx.Done()
		app.Stop()
	}()

	logger.Info("monitor started", "server", c.BaseURL(), "analysis", analysisID)
	refreshStatus()
	err := app.SetRoot(root, true).EnableMouse(true).SetFocus(view).Run()
	cancel()
	return err
}

func startEmbeddedServer(addr, serverBinary, configPath, dbPath string) (*embeddedServer, error) {
	_, port, err := net.SplitHostPort(strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://"))
	if err != nil || port == "" {
		return nil, fmt.Errorf("addr must include explicit port, got %q", addr)
	}
	args := []string{"serve", "--addr", ":" + port}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		args = append(args, "--db", dbPath)
	}

	var cmd *exec.Cmd
	if strings.TrimSpace(serverBinary) != "" {
		cmd = exec.Command(serverBinary, args...)
	} else {
		self, err := os.Executable()
		if err == nil {
			for _, name := range []string{"agentscope", "agentscope.exe"} {
				sibling := filepath.Join(filepath.Dir(self), name)
				if fileExists(sibling) {
					cmd = exec.Command(sibling, args...)
					break
				}
			}
		}
		if cmd == nil {
			cmd = exec.Command("go", append([]string{"run", "./cmd/agentscope"}, args...)...)
			cwd, _ := os.Getwd()
			cmd.Dir = cwd
		}
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server process: %w", err)
	}
	return &embeddedServer{cmd: cmd}, nil
}

func (e *embeddedServer) Stop() {
	if e == nil || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	_ = e.cmd.Process.Kill()
	_, _ = e.cmd.Process.Wait()
}

func trimLine(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

func shortID(v string) string {
	if len(v) <= 8 {
		return v
	}
	return v[:8]
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
