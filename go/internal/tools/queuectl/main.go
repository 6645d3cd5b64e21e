// queuectl runs admin queue actions from a terminal, asking on stdin before
// anything destructive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/slotsync/go/clients/queue_client"
	"github.com/mcdev12/slotsync/go/internal/config"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/session"
)

const usage = `usage: queuectl [-config path] [-server URL] [-yes] <command> [args]

commands:
  status
  next
  reset
  move TOKEN up|down
  delete TOKEN
  serve-now TOKEN
  edit TOKEN SERVICE...`

func main() {
	configPath := flag.String("config", "slotsync.yaml", "path to the screen config file")
	serverURL := flag.String("server", "", "queue server URL (overrides config)")
	yes := flag.Bool("yes", false, "skip confirmation prompts")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}

	client := queue_client.NewQueueClient(cfg.Server.URL, "queuectl")
	screenConfig := cfg.ScreenConfig()
	screenConfig.Mode = queuesync.ModeAdmin
	screenConfig.Dispatcher.RepeatInterval = 0
	screen := queuesync.NewScreen(screenConfig, queuesync.ScreenDeps{
		Fetcher: client,
		Writer:  client,
		Store:   session.NewMemoryStore(),
	})

	if err := screen.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fetch queue: %v\n", err)
		os.Exit(1)
	}

	var confirm queuesync.Confirmer = queuesync.ConfirmFunc(promptConfirm)
	if *yes {
		confirm = queuesync.Confirmed(true)
	}

	if err := run(ctx, screen.Dispatcher(), confirm, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}

	if flag.Arg(0) != "status" {
		if err := screen.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "refresh queue: %v\n", err)
			os.Exit(1)
		}
	}
	printQueue(screen.View())
}

func run(ctx context.Context, d *queuesync.Dispatcher, confirm queuesync.Confirmer, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		return nil
	case "next":
		return d.Next(ctx)
	case "reset":
		return d.Reset(ctx, confirm)
	case "move":
		if len(rest) != 2 {
			return fmt.Errorf("want TOKEN up|down")
		}
		token, err := parseToken(rest[0])
		if err != nil {
			return err
		}
		return d.Move(ctx, token, models.Direction(rest[1]))
	case "delete":
		token, err := tokenArg(rest)
		if err != nil {
			return err
		}
		return d.Delete(ctx, token, confirm)
	case "serve-now":
		token, err := tokenArg(rest)
		if err != nil {
			return err
		}
		return d.ServeNow(ctx, token)
	case "edit":
		if len(rest) < 2 {
			return fmt.Errorf("want TOKEN SERVICE...")
		}
		token, err := parseToken(rest[0])
		if err != nil {
			return err
		}
		return d.Edit(ctx, token, rest[1:])
	default:
		return fmt.Errorf("unknown command\n%s", usage)
	}
}

func tokenArg(rest []string) (int, error) {
	if len(rest) != 1 {
		return 0, fmt.Errorf("want exactly one TOKEN")
	}
	return parseToken(rest[0])
}

func parseToken(s string) (int, error) {
	token, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid token %q", s)
	}
	return token, nil
}

func promptConfirm(ctx context.Context, req queuesync.ConfirmRequest) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", req.Prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func printQueue(v queuesync.View) {
	if v.ShopStatus != "" {
		fmt.Printf("shop: %s\n", v.ShopStatus)
	}
	fmt.Printf("waiting: %d, now serving ends in %ds, next join waits ~%d min\n",
		v.Waiting, v.SecondsLeft, v.JoinWaitMinutes)
	if len(v.Queue) == 0 {
		fmt.Println("queue is empty")
		return
	}
	for _, row := range v.Queue {
		fmt.Printf("%3d. #%-5d %-20s %-30s %3d min  wait %3d min\n",
			row.Position,
			row.Customer.Token,
			row.Customer.Name,
			strings.Join(row.Customer.Services, ", "),
			row.DurationMinutes,
			row.WaitMinutes,
		)
	}
}
