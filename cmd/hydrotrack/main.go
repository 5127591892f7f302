package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"hydrotrack/internal/app"
	"hydrotrack/internal/assistant"
	"hydrotrack/internal/config"
	"hydrotrack/internal/export"
	"hydrotrack/internal/intake"
	"hydrotrack/internal/llm"
	"hydrotrack/internal/plant"
	"hydrotrack/internal/stats"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer rt.Close()
	a := rt.App
	args := os.Args[2:]

	switch os.Args[1] {
	case "log":
		if len(args) != 1 {
			log.Fatal("Usage: hydrotrack log <liters>")
		}
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			log.Fatalf("Invalid amount %q", args[0])
		}
		e, grew, err := a.AddEntry(ctx, amount)
		if err != nil {
			log.Fatalf("Failed to log intake: %v", err)
		}
		s := a.Stats()
		fmt.Printf("Logged %.2fL (%s). Today: %.2fL / %.2fL (%d%%)\n", e.Amount, e.ID, s.TodayTotal, s.Goal, s.TodayPercentage)
		if grew {
			fmt.Printf("Goal reached! Your plant grew to height %d.\n", a.Plant().Height)
		}

	case "history":
		historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
		limit := historyCmd.Int("n", 20, "Show at most N entries (0 for all)")
		historyCmd.Parse(args)
		printHistory(a.Entries(), a, *limit)

	case "delete":
		if len(args) != 1 {
			log.Fatal("Usage: hydrotrack delete <id>")
		}
		removed, err := a.DeleteEntry(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to delete entry: %v", err)
		}
		if !removed {
			fmt.Printf("No entry with id %s.\n", args[0])
			os.Exit(1)
		}
		fmt.Println("Entry deleted.")

	case "clear":
		clearCmd := flag.NewFlagSet("clear", flag.ExitOnError)
		yes := clearCmd.Bool("yes", false, "Confirm removing all entries")
		clearCmd.Parse(args)
		if !*yes {
			fmt.Println("This removes all entries and resets your plant. Re-run with -yes to confirm.")
			os.Exit(1)
		}
		if err := a.ClearAll(ctx); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		fmt.Println("All entries cleared.")

	case "stats":
		s := a.Stats()
		fmt.Printf("Today:        %.2fL / %.2fL (%d%%)\n", s.TodayTotal, s.Goal, s.TodayPercentage)
		fmt.Printf("Weekly avg:   %.2fL/day over %d days\n", s.WeekAvg, s.DaysPassedInWeek)
		fmt.Printf("This month:   %.2fL\n", s.MonthTotal)
		fmt.Println(stats.Encouragement(s))

	case "series":
		seriesCmd := flag.NewFlagSet("series", flag.ExitOnError)
		kind := seriesCmd.String("kind", string(stats.Daily), "daily, weekly or monthly")
		seriesCmd.Parse(args)
		points, ok := a.Series(stats.Kind(*kind))
		if !ok {
			log.Fatalf("Unknown series kind %q", *kind)
		}
		for _, p := range points {
			fmt.Printf("%-6s %-10s %.2fL\n", p.Label, p.Start, p.Value)
		}

	case "goal":
		if len(args) == 0 {
			fmt.Printf("Daily goal: %.2fL\n", a.Goal())
			return
		}
		goal, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			log.Fatalf("Invalid goal %q", args[0])
		}
		if err := a.SetGoal(ctx, goal); err != nil {
			log.Fatalf("Failed to set goal: %v", err)
		}
		fmt.Printf("Daily goal set to %.2fL.\n", goal)

	case "autolog":
		runAutoLog(ctx, a, args)

	case "plant":
		st := a.Plant()
		stage := plant.StageFor(st.Height)
		fmt.Printf("Height: %d\nLeaves: %d pairs\nFlowering: %t\n", st.Height, stage.Leaves, stage.Flowering)
		if st.LastGrowthDate != "" {
			fmt.Printf("Last grew: %s\n", st.LastGrowthDate)
		}

	case "chat":
		chatModel, err := llm.NewChatClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize assistant: %v", err)
		}
		defer chatModel.Close()
		conv := assistant.New(chatModel, rt.Metrics, rt.Collectors, nil)
		runChat(ctx, conv, strings.Join(args, " "))

	case "export":
		exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
		out := exportCmd.String("o", "hydrotrack.xlsx", "Output file")
		exportCmd.Parse(args)
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *out, err)
		}
		err = export.Write(f, export.Report{
			Entries:  a.Entries(),
			Summary:  a.Stats(),
			Daily:    a.DailySeries(),
			Weekly:   a.WeeklySeries(),
			Monthly:  a.MonthlySeries(),
			Location: cfg.Location,
		})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("Exported %d entries to %s.\n", len(a.Entries()), *out)

	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)

		affected, err := rt.Metrics.Cleanup(ctx, *days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printHistory(entries []intake.Entry, a *app.App, limit int) {
	if len(entries) == 0 {
		fmt.Println("No entries yet.")
		return
	}
	loc := a.Now().Location()
	for i, e := range intake.NewestFirst(entries) {
		if limit > 0 && i == limit {
			fmt.Printf("... %d older entries\n", len(entries)-limit)
			break
		}
		fmt.Printf("%s  %5.2fL  %s\n", e.Time(loc).Format("2006-01-02 15:04"), e.Amount, e.ID)
	}
}

func runAutoLog(ctx context.Context, a *app.App, args []string) {
	var err error
	switch {
	case len(args) == 0 || args[0] == "status":
	case args[0] == "on":
		err = a.SetAutoLogEnabled(ctx, true)
	case args[0] == "off":
		err = a.SetAutoLogEnabled(ctx, false)
	case args[0] == "window" && len(args) == 3:
		err = a.SetAutoLogWindow(ctx, args[1], args[2])
	case args[0] == "tick":
		logged, terr := a.AutoLogTick(ctx)
		if terr != nil {
			log.Fatalf("Auto-log check failed: %v", terr)
		}
		if logged {
			fmt.Println("Logged an automatic 200ml dose.")
		} else {
			fmt.Println("No dose due.")
		}
	default:
		log.Fatal("Usage: hydrotrack autolog [status|on|off|window HH:MM HH:MM|tick]")
	}
	if errors.Is(err, app.ErrAutoLogActive) {
		log.Fatal("Turn the auto-logger off before changing its window.")
	}
	if err != nil {
		log.Fatalf("Failed to update auto-logger: %v", err)
	}

	cfg := a.AutoLog()
	fmt.Printf("Enabled: %t\nWindow:  %s - %s\nStatus:  %s\n", cfg.Enabled, cfg.StartTime, cfg.EndTime, a.AutoLogStatus())
}

// runChat sends a single message, or reads messages from stdin until EOF
// when none is given.
func runChat(ctx context.Context, conv *assistant.Conversation, message string) {
	if message != "" {
		reply, err := conv.Send(ctx, message)
		if err != nil {
			log.Fatalf("Chat failed: %v", err)
		}
		fmt.Println(reply.Text)
		return
	}

	fmt.Println(conv.Messages()[0].Text)
	fmt.Println("(type /reset to start over, Ctrl-D to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); scanner.Scan(); fmt.Print("> ") {
		line := strings.TrimSpace(scanner.Text())
		if line == "/reset" {
			fmt.Println(conv.Reset().Text)
			continue
		}
		reply, err := conv.Send(ctx, line)
		if errors.Is(err, assistant.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Println(reply.Text)
	}
}

func printUsage() {
	fmt.Println("Usage: hydrotrack <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  log <liters>                 Record a drink")
	fmt.Println("  history [-n N]               List entries, newest first")
	fmt.Println("  delete <id>                  Remove an entry")
	fmt.Println("  clear -yes                   Remove all entries and reset the plant")
	fmt.Println("  stats                        Today, weekly average and month totals")
	fmt.Println("  series [-kind daily|weekly|monthly]")
	fmt.Println("                               Chart data")
	fmt.Println("  goal [liters]                Show or set the daily goal")
	fmt.Println("  autolog [status|on|off|window HH:MM HH:MM|tick]")
	fmt.Println("                               Manage the hourly auto-logger")
	fmt.Println("  plant                        Show the hydration plant")
	fmt.Println("  chat [message]               Ask the assistant")
	fmt.Println("  export [-o file.xlsx]        Export history and charts")
	fmt.Println("  metrics-cleanup [-days N]    Remove old metric records")
}
