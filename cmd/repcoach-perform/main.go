package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/claude/repcoach/internal/client"
	repmcp "github.com/claude/repcoach/internal/mcp"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/outbox"
	"github.com/claude/repcoach/internal/tui"
	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "RepCoach server URL (e.g. http://repcoach.tail1234.ts.net)")
	workoutArg := flag.String("workout", "", "workout to perform, by ID or name; lists assigned workouts when empty")
	stateDir := flag.String("state-dir", "", "directory for the offline outbox (default ~/.repcoach-perform)")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio against the server instead of performing")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("repcoach-perform", Version)
		return
	}

	// stdout belongs to the TUI or the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: repcoach-perform -server <URL> [-workout <id|name>] [-mcp]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	c := client.New(*serverURL)

	if *mcpMode {
		if err := server.ServeStdio(repmcp.New(c, Version, log)); err != nil {
			log.Error("mcp stdio server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if *stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(home, ".repcoach-perform")
	}
	box, err := outbox.Open(*stateDir)
	if err != nil {
		log.Error("failed to open outbox", "error", err)
		os.Exit(1)
	}
	defer box.Close()

	flush(ctx, box, c, log)

	if *workoutArg == "" {
		if err := listAssigned(ctx, c); err != nil {
			log.Error("listing workouts failed", "error", err)
			os.Exit(1)
		}
		return
	}

	tmpl, err := resolveWorkout(ctx, c, *workoutArg)
	if err != nil {
		log.Error("finding workout failed", "workout", *workoutArg, "error", err)
		os.Exit(1)
	}

	sub, err := perform(tmpl)
	if err != nil {
		log.Error("workout session failed", "error", err)
		os.Exit(1)
	}
	if sub == nil {
		log.Info("workout discarded, nothing logged")
		return
	}

	// Queue first so the log survives a failed submit or a crash.
	if err := box.Put(ctx, *sub); err != nil {
		log.Error("failed to queue workout log", "error", err)
		os.Exit(1)
	}
	flush(ctx, box, c, log)
}

// perform runs the session in the terminal and returns the log to submit,
// or nil when the session was discarded.
func perform(tmpl *models.TemplateRow) (*models.LogSubmission, error) {
	s, err := workout.NewSession(tmpl.Exercises, time.Now())
	if err != nil {
		return nil, err
	}
	final, err := tea.NewProgram(tui.New(tmpl.Name, s), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	m := final.(tui.Model)
	fmt.Print(m.View())

	sum, ok := m.Summary()
	if !ok {
		return nil, nil
	}
	return &models.LogSubmission{
		SessionID:   uuid.New(),
		TemplateID:  &tmpl.ID,
		WorkoutName: tmpl.Name,
		CompletedAt: time.Now(),
		Summary:     *sum,
	}, nil
}

func flush(ctx context.Context, box *outbox.Outbox, c *client.Client, log *slog.Logger) {
	stats, err := box.Flush(ctx, c, log)
	if err != nil {
		pending, _, _ := box.Counts(ctx)
		log.Warn("server unreachable, logs kept for next run", "pending", pending, "error", err)
		return
	}
	if stats.Sent+stats.Duplicates+stats.Rejected > 0 {
		log.Info("outbox flushed", "sent", stats.Sent, "duplicates", stats.Duplicates, "rejected", stats.Rejected)
	}
}

func listAssigned(ctx context.Context, c *client.Client) error {
	templates, err := c.ListAssigned(ctx)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		fmt.Println("No workouts assigned yet.")
		return nil
	}
	fmt.Println("Assigned workouts:")
	for _, t := range templates {
		fmt.Printf("  %s  %-24s %d exercises\n", t.ID, t.Name, len(t.Exercises))
	}
	fmt.Println("\nStart one with -workout <id or name>.")
	return nil
}

// resolveWorkout accepts a template ID or an assigned workout's name,
// ignoring case.
func resolveWorkout(ctx context.Context, c *client.Client, arg string) (*models.TemplateRow, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return c.GetTemplate(ctx, id)
	}
	templates, err := c.ListAssigned(ctx)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if strings.EqualFold(templates[i].Name, arg) {
			return &templates[i], nil
		}
	}
	return nil, errors.New("no assigned workout with that name")
}
