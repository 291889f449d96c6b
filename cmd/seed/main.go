// Package main provides a tool to seed the database with demo data.
//
// It creates users with tagged bugs through the services, so the seeded data
// satisfies every reference invariant.
//
// Usage:
//
//	go run ./cmd/seed --users 3 --bugs 8 --tags 4
//	go run ./cmd/seed --db-driver sqlite --data-path /tmp/bughive
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/integrity"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/service"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/store/backend"
	"github.com/bughive/bughive-server/internal/validation"
)

var tagTitles = []string{"frontend", "backend", "database", "security", "performance", "ui", "api", "docs"}

var bugTitles = []string{
	"Login button unresponsive",
	"Crash when saving draft",
	"Slow search on large projects",
	"Wrong timezone in reports",
	"Avatar upload fails",
	"Session expires too early",
	"Broken link in footer",
	"Export drops last row",
	"Dark mode resets on reload",
	"Duplicate notifications",
}

type options struct {
	envFile  string
	driver   string
	dataPath string
	users    int
	bugs     int
	tags     int
	password string
	seed     uint64
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Fill the store with demo users, bugs and tags",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "Path to .env file")
	flags.StringVar(&opts.driver, "db-driver", "", "Store backend: badger, sqlite or mongo")
	flags.StringVar(&opts.dataPath, "data-path", "", "Directory holding the embedded databases")
	flags.IntVar(&opts.users, "users", 3, "Number of users to create")
	flags.IntVar(&opts.bugs, "bugs", 5, "Bugs per user")
	flags.IntVar(&opts.tags, "tags", 3, "Tags per user")
	flags.StringVar(&opts.password, "password", "demo123", "Password of every created user")
	flags.Uint64Var(&opts.seed, "seed", 1, "Random seed")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts options) error {
	if opts.tags > len(tagTitles) {
		return fmt.Errorf("at most %d tags per user", len(tagTitles))
	}

	args := []string{"-env-file", opts.envFile}
	if opts.driver != "" {
		args = append(args, "-db-driver", opts.driver)
	}
	if opts.dataPath != "" {
		args = append(args, "-data-path", opts.dataPath)
	}
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	s, err := backend.Open(ctx, cfg.Database, logger.Discard())
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	defer s.Close()

	seeder := newSeeder(s, rand.New(rand.NewPCG(opts.seed, opts.seed)))
	for n := range opts.users {
		user, err := seeder.seedUser(ctx, n, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %s (%s) with %d bugs and %d tags\n", user.Username, user.Email, opts.bugs, opts.tags)
	}

	report, err := integrity.Check(ctx, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "store holds %d users, %d bugs, %d tags; %d violations\n",
		report.Users, report.Bugs, report.Tags, len(report.Violations))
	return nil
}

type seeder struct {
	auth *service.AuthService
	bugs *service.BugService
	tags *service.TagService
	rng  *rand.Rand
}

func newSeeder(s store.Store, rng *rand.Rand) *seeder {
	v := validation.New()
	log := logger.Discard()
	return &seeder{
		// Seeding never issues tokens.
		auth: service.NewAuthService(s, nil, v, nil, log),
		bugs: service.NewBugService(s, v, log),
		tags: service.NewTagService(s, v, log),
		rng:  rng,
	}
}

func (sd *seeder) seedUser(ctx context.Context, n int, opts options) (*domain.User, error) {
	username := fmt.Sprintf("demo%d-%04d", n+1, sd.rng.IntN(10000))
	user, err := sd.auth.Register(ctx, service.RegisterRequest{
		Username: username,
		Name:     fmt.Sprintf("Demo User %d", n+1),
		Email:    username + "@example.com",
		Password: opts.password,
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", username, err)
	}

	tagIDs := make([]string, 0, opts.tags)
	for _, title := range tagTitles[:opts.tags] {
		tag, err := sd.tags.Create(ctx, user.ID, service.TagRequest{Title: title})
		if err != nil {
			return nil, fmt.Errorf("create tag %q: %w", title, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	for range opts.bugs {
		req := service.BugRequest{
			Title:       bugTitles[sd.rng.IntN(len(bugTitles))],
			Description: "Seeded for local development.",
			References:  []string{fmt.Sprintf("https://tracker.example.com/%d", sd.rng.IntN(100000))},
			Tags:        sd.pick(tagIDs),
		}
		if _, err := sd.bugs.Create(ctx, user.ID, req); err != nil {
			return nil, fmt.Errorf("create bug: %w", err)
		}
	}
	return user, nil
}

// pick returns a random subset of ids, possibly empty.
func (sd *seeder) pick(ids []string) []string {
	var out []string
	for _, id := range ids {
		if sd.rng.IntN(2) == 0 {
			out = append(out, id)
		}
	}
	return out
}
