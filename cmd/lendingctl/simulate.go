package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/shell"
)

var ErrInvalidMemberCount = errors.New("--members must be positive")

func newSimulateCommand(a *app) *cobra.Command {
	var (
		itemRaw string
		members int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Register members and let all of them borrow one item at the same time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if members <= 0 {
				return ErrInvalidMemberCount
			}

			now, err := a.now()
			if err != nil {
				return err
			}

			itemID, err := a.simulationItem(cmd.Context(), itemRaw)
			if err != nil {
				return err
			}

			memberIDs, err := a.simulationMembers(cmd.Context(), members)
			if err != nil {
				return err
			}

			result, err := a.simulateBorrows(cmd.Context(), itemID, memberIDs, now)
			if err != nil {
				return err
			}

			return a.print(result)
		},
	}

	cmd.Flags().StringVar(&itemRaw, "item", "", "item to contend for, a new book is added when empty")
	cmd.Flags().IntVar(&members, "members", 10, "number of concurrent borrowers")

	return cmd
}

func (a *app) simulationItem(ctx context.Context, raw string) (uuid.UUID, error) {
	if raw != "" {
		return parseID("item", raw)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}

	if err := a.store.SaveItem(ctx, core.NewItem(id, "simulation copy", core.ItemKindBook)); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

func (a *app) simulationMembers(ctx context.Context, count int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, count)
	for i := range count {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}

		member := core.NewMember(id, fmt.Sprintf("simulated member %d", i+1), "")
		if err := a.store.SaveMember(ctx, member); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// simulateBorrows races one borrow per member for the item. Refusals and infrastructure
// failures are tallied, only cancellation aborts the run.
func (a *app) simulateBorrows(ctx context.Context, itemID uuid.UUID, memberIDs []uuid.UUID, now time.Time) (simulationView, error) {
	result := simulationView{
		ItemID:   itemID.String(),
		Members:  len(memberIDs),
		Failures: make(map[string]int),
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, memberID := range memberIDs {
		g.Go(func() error {
			var loan core.Loan

			err := a.retry(gctx, "simulate_borrow", func(ctx context.Context) error {
				var borrowErr error
				loan, borrowErr = a.service.BorrowItem(ctx, memberID, itemID, now)
				return borrowErr
			})

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				result.Successes++
				result.Winner = loan.MemberID.String()
				return nil
			}

			if reason, ok := core.ReasonOf(err); ok {
				result.Failures[string(reason)]++
				return nil
			}

			errorType := shell.ErrorTypeOf(err)
			result.Failures[errorType]++

			if errorType == shell.ErrorTypeContextCanceled || errorType == shell.ErrorTypeDeadlineExceeded {
				return err
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return simulationView{}, err
	}

	return result, nil
}
