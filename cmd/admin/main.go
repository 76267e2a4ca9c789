package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"incluverse/backend/internal/api/handler"
	"incluverse/backend/internal/app"
	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/models"

	log "github.com/sirupsen/logrus"
)

const usage = `Usage: admin <command> [args]

Commands:
  list [status]              list complaints, newest first
  show <id>                  print one complaint
  queue                      list open complaints, most urgent first
  respond <id> <text...>     record a responder reply
  auto-respond <id>          record a canned reply in the complaint's language
  set-status <id> <status>   change a complaint's status
  sync                       submit offline complaints now
  stats                      print collection statistics
  hash-key <key>             print the RESPONDER_KEY_HASH for key`

var errUsage = errors.New("invalid arguments")

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	// hash-key needs no storage
	if os.Args[1] == "hash-key" {
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin hash-key <key>")
			os.Exit(1)
		}
		hash, err := handler.HashResponderKey(os.Args[2])
		if err != nil {
			log.Fatalf("Error hashing key: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg.SetupLogging()

	a, err := app.New(cfg, nil)
	if err != nil {
		log.Fatalf("failed to open complaint store: %v", err)
	}
	ctx := context.Background()
	if _, err := a.Service.Load(ctx); err != nil {
		log.Fatalf("failed to load complaints: %v", err)
	}

	if err := run(ctx, a.Service, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Println(usage)
			os.Exit(1)
		}
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, svc *complaint.Service, args []string, out io.Writer) error {
	switch args[0] {
	case "list":
		status := models.StatusAll
		if len(args) > 1 {
			status = args[1]
		}
		if _, ok := models.ParseStatus(status); !ok && status != models.StatusAll {
			return fmt.Errorf("%w: %q", complaint.ErrUnknownStatus, status)
		}
		n := 0
		for c := range svc.Search("", status) {
			printComplaint(out, c)
			n++
		}
		fmt.Fprintf(out, "%d complaint(s)\n", n)
	case "queue":
		queue := svc.Queue()
		for _, c := range queue {
			printComplaint(out, c)
		}
		fmt.Fprintf(out, "%d open complaint(s)\n", len(queue))
	case "show":
		id, err := argID(args)
		if err != nil {
			return err
		}
		c, err := svc.Get(id)
		if err != nil {
			return err
		}
		return printJSON(out, c)
	case "respond":
		if len(args) < 3 {
			return errUsage
		}
		id, err := argID(args)
		if err != nil {
			return err
		}
		c, err := svc.SetResponse(ctx, id, strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Complaint %d is now %s.\n", c.ID, c.Status)
	case "auto-respond":
		id, err := argID(args)
		if err != nil {
			return err
		}
		c, err := svc.GenerateAutoResponse(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Complaint %d answered: %s\n", c.ID, c.Response)
	case "set-status":
		if len(args) != 3 {
			return errUsage
		}
		id, err := argID(args)
		if err != nil {
			return err
		}
		c, err := svc.SetStatus(ctx, id, models.Status(args[2]))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Complaint %d is now %s.\n", c.ID, c.Status)
	case "sync":
		n, err := svc.TrySyncPending(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d complaint(s) synced.\n", n)
	case "stats":
		return printJSON(out, svc.Stats())
	default:
		return errUsage
	}
	return nil
}

func argID(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid complaint id %q", args[1])
	}
	return id, nil
}

func printComplaint(out io.Writer, c models.Complaint) {
	text := c.Text
	if r := []rune(text); len(r) > 60 {
		text = string(r[:57]) + "..."
	}
	fmt.Fprintf(out, "#%d\t%-11s\t%s\t%s\n", c.ID, c.Status, c.Language, text)
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
