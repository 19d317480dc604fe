package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/profile-engine/internal/observability"
	"github.com/jonathan/profile-engine/internal/scoring"
)

var (
	rescoreUser    string
	rescoreAll     bool
	rescoreExplain bool
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute and persist profile completion scores",
	Long:  `Re-derives the completion score from the stored profile and its related entities, for one user (--user) or every profile (--all).`,
	Args:  cobra.NoArgs,
	RunE:  runRescore,
}

func init() {
	rescoreCmd.Flags().StringVar(&rescoreUser, "user", "", "User ID to rescore")
	rescoreCmd.Flags().BoolVar(&rescoreAll, "all", false, "Rescore every profile")
	rescoreCmd.Flags().BoolVar(&rescoreExplain, "explain", false, "Print the per-category breakdown of each score")
	rescoreCmd.MarkFlagsMutuallyExclusive("user", "all")
	rescoreCmd.MarkFlagsOneRequired("user", "all")
	rootCmd.AddCommand(rescoreCmd)
}

// scoreRecomputer is the part of the profile service rescore needs.
type scoreRecomputer interface {
	RecomputeScore(ctx context.Context, userID uuid.UUID) (int, error)
	ScoreBreakdown(ctx context.Context, userID uuid.UUID) (scoring.Breakdown, error)
}

func runRescore(cmd *cobra.Command, _ []string) error {
	var single uuid.UUID
	if rescoreUser != "" {
		var err error
		if single, err = uuid.Parse(rescoreUser); err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
	}

	rt, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	userIDs := []uuid.UUID{single}
	if rescoreAll {
		if userIDs, err = rt.db.ListUserIDs(cmd.Context()); err != nil {
			return err
		}
	}
	return rescoreUsers(cmd.Context(), cmd.OutOrStdout(), rt.service, userIDs, rescoreExplain, rt.log)
}

// rescoreUsers recomputes each score in turn. It keeps going after a failure
// and reports how many failed.
func rescoreUsers(ctx context.Context, out io.Writer, svc scoreRecomputer, userIDs []uuid.UUID, explain bool, log *zap.Logger) error {
	printer := observability.NewPrinter(out)
	failed := 0
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		score, err := svc.RecomputeScore(ctx, id)
		if err != nil {
			failed++
			log.Warn("failed to rescore profile", zap.String("user_id", id.String()), zap.Error(err))
			continue
		}
		if !explain {
			fmt.Fprintf(out, "%s\t%d\n", id, score)
			continue
		}
		b, err := svc.ScoreBreakdown(ctx, id)
		if err != nil {
			failed++
			log.Warn("failed to explain score", zap.String("user_id", id.String()), zap.Error(err))
			continue
		}
		printer.PrintScoreBreakdown(id.String(), score, b)
	}
	if failed > 0 {
		return fmt.Errorf("failed to rescore %d of %d profiles", failed, len(userIDs))
	}
	return nil
}
