package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/foliolabs/folio/pkg/comments"
	"github.com/foliolabs/folio/pkg/config"
	"github.com/foliolabs/folio/pkg/logging"
)

const usage = `folio-admin: operational tooling for a folio deployment

Commands:
  hash-token                 Prompt for an admin token and print its bcrypt hash
  comments list [status]     List comments (default: pending)
  comments approve <id>      Approve a comment
  comments reject <id>       Reject a comment
  comments spam <id>         Mark a comment as spam
  comments delete <id>       Delete a comment

The comments commands read the database settings from the config file
(-config) and FOLIO_* environment variables.
`

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "hash-token":
		err = hashToken()
	case "comments":
		err = commentsCommand(*configPath, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "folio-admin: %v\n", err)
		os.Exit(1)
	}
}

func hashToken() error {
	fmt.Fprint(os.Stderr, "Admin token: ")
	token, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	if len(token) < 8 {
		return fmt.Errorf("token must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword(token, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing token: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

func commentsCommand(configPath string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("comments: missing subcommand")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cfg.Comments.Enabled {
		return fmt.Errorf("comments are not configured; set FOLIO_DB_URL or the comments section")
	}

	logger := logging.New(&logging.Config{Level: logging.WarnLevel, Output: os.Stderr})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := comments.NewStore(ctx, cfg.Comments.Store,
		comments.NewModerator(cfg.Comments.Moderation), logger)
	if err != nil {
		return fmt.Errorf("comment store: %w", err)
	}
	defer store.Close()

	switch args[0] {
	case "list":
		status := comments.StatusPending
		if len(args) > 1 {
			status = comments.Status(args[1])
			if !comments.ValidStatus(status) {
				return fmt.Errorf("unknown status %q", args[1])
			}
		}
		return listComments(ctx, store, status)
	case "approve":
		return setStatus(ctx, store, args[1:], comments.StatusApproved)
	case "reject":
		return setStatus(ctx, store, args[1:], comments.StatusRejected)
	case "spam":
		return setStatus(ctx, store, args[1:], comments.StatusSpam)
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("delete: missing comment id")
		}
		if err := store.Delete(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[1])
		return nil
	default:
		return fmt.Errorf("comments: unknown subcommand %q", args[0])
	}
}

func listComments(ctx context.Context, store *comments.Store, status comments.Status) error {
	list, err := store.ListByStatus(ctx, status, 100, 0)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("no %s comments\n", status)
		return nil
	}
	for _, c := range list {
		body := c.Body
		if len(body) > 60 {
			body = body[:57] + "..."
		}
		fmt.Printf("%s  %s  %-20s  %s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), c.Author, body)
	}
	return nil
}

func setStatus(ctx context.Context, store *comments.Store, args []string, status comments.Status) error {
	if len(args) < 1 {
		return fmt.Errorf("missing comment id")
	}
	if err := store.SetStatus(ctx, args[0], status); err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", args[0], status)
	return nil
}
