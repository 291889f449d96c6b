package main

import (
	"cmp"
	"context"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bughive/bughive-server/internal/integrity"
	"github.com/bughive/bughive-server/internal/store"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report broken references; exits 1 when any is found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := integrity.Check(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			if err := a.print(report); err != nil {
				return err
			}
			a.violations = !report.OK()
			return nil
		},
	}
}

// UserStats counts what one user owns.
type UserStats struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Bugs     int    `json:"bugs" yaml:"bugs"`
	Tags     int    `json:"tags" yaml:"tags"`
}

// Stats summarizes the store.
type Stats struct {
	Driver string      `json:"driver" yaml:"driver"`
	Users  int         `json:"users" yaml:"users"`
	Bugs   int         `json:"bugs" yaml:"bugs"`
	Tags   int         `json:"tags" yaml:"tags"`
	Links  int         `json:"links" yaml:"links"`
	ByUser []UserStats `json:"byUser" yaml:"byUser"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print document counts per collection and per user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := collectStats(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			stats.Driver = a.driver
			return a.print(stats)
		},
	}
}

func collectStats(ctx context.Context, s store.Store) (*Stats, error) {
	stats := &Stats{ByUser: []UserStats{}}
	err := s.View(ctx, func(tx store.Tx) error {
		users, err := tx.Users().Find(ctx, store.Filter{})
		if err != nil {
			return err
		}
		bugs, err := tx.Bugs().Find(ctx, store.Filter{})
		if err != nil {
			return err
		}
		tags, err := tx.Tags().Find(ctx, store.Filter{})
		if err != nil {
			return err
		}

		perUser := make(map[string]*UserStats, len(users))
		for _, u := range users {
			perUser[u.ID] = &UserStats{ID: u.ID, Username: u.Username}
		}
		for _, b := range bugs {
			if us, ok := perUser[b.User]; ok {
				us.Bugs++
			}
			stats.Links += len(b.Tags)
		}
		for _, t := range tags {
			if us, ok := perUser[t.User]; ok {
				us.Tags++
			}
		}

		stats.Users, stats.Bugs, stats.Tags = len(users), len(bugs), len(tags)
		for _, us := range perUser {
			stats.ByUser = append(stats.ByUser, *us)
		}
		slices.SortFunc(stats.ByUser, func(x, y UserStats) int {
			return cmp.Compare(x.Username, y.Username)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// repairResult is printed by the repair command.
type repairResult struct {
	DryRun  bool               `json:"dryRun" yaml:"dryRun"`
	Changes []integrity.Change `json:"changes" yaml:"changes"`
	After   *integrity.Report  `json:"after,omitempty" yaml:"after,omitempty"`
}

func newRepairCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Rewrite reference lists so that check passes",
		Long: `Rewrite every reference list so that check passes.

Bugs and tags whose owner no longer exists are deleted. User lists are rebuilt
from ownership. A bug-tag link recorded on either side is restored on both,
unless it points at a missing document or another user's document.

Examples:
  dbinspect repair --dry-run
  dbinspect repair -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changes, err := integrity.Repair(cmd.Context(), a.store, integrity.RepairOptions{DryRun: dryRun})
			if err != nil {
				return err
			}

			result := repairResult{DryRun: dryRun, Changes: changes}
			if result.Changes == nil {
				result.Changes = []integrity.Change{}
			}
			if !dryRun {
				if result.After, err = integrity.Check(cmd.Context(), a.store); err != nil {
					return err
				}
			}
			if err := a.print(result); err != nil {
				return err
			}
			if result.After != nil && !result.After.OK() {
				return errViolations
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without writing them")
	return cmd
}
