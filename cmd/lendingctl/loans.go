package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediatheque-go/lending/core"
)

var ErrReturnTarget = errors.New("return needs either --loan or both --member and --item")

func newBorrowCommand(a *app) *cobra.Command {
	var memberRaw, itemRaw string

	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Lend an item to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			memberID, itemID, err := parseMemberAndItem(memberRaw, itemRaw)
			if err != nil {
				return err
			}

			now, err := a.now()
			if err != nil {
				return err
			}

			var loan core.Loan

			err = a.retry(cmd.Context(), "borrow", func(ctx context.Context) error {
				var borrowErr error
				loan, borrowErr = a.service.BorrowItem(ctx, memberID, itemID, now)
				return borrowErr
			})
			if err != nil {
				return err
			}

			return a.print(toLoanView(loan, loan.StateAt(now)))
		},
	}

	cmd.Flags().StringVar(&memberRaw, "member", "", "borrowing member id")
	cmd.Flags().StringVar(&itemRaw, "item", "", "item id")
	_ = cmd.MarkFlagRequired("member")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

func newReturnCommand(a *app) *cobra.Command {
	var loanRaw, memberRaw, itemRaw string

	cmd := &cobra.Command{
		Use:   "return",
		Short: "Close a loan by id, or by the member and item it links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := a.now()
			if err != nil {
				return err
			}

			var returnFn func(ctx context.Context) (core.Loan, error)

			switch {
			case loanRaw != "" && memberRaw == "" && itemRaw == "":
				loanID, parseErr := parseID("loan", loanRaw)
				if parseErr != nil {
					return parseErr
				}

				returnFn = func(ctx context.Context) (core.Loan, error) {
					return a.service.ReturnItem(ctx, loanID, now)
				}

			case loanRaw == "" && memberRaw != "" && itemRaw != "":
				memberID, itemID, parseErr := parseMemberAndItem(memberRaw, itemRaw)
				if parseErr != nil {
					return parseErr
				}

				returnFn = func(ctx context.Context) (core.Loan, error) {
					return a.service.ReturnItemOfMember(ctx, memberID, itemID, now)
				}

			default:
				return ErrReturnTarget
			}

			var loan core.Loan

			err = a.retry(cmd.Context(), "return", func(ctx context.Context) error {
				var returnErr error
				loan, returnErr = returnFn(ctx)
				return returnErr
			})
			if err != nil {
				return err
			}

			return a.print(toLoanView(loan, loan.StateAt(now)))
		},
	}

	cmd.Flags().StringVar(&loanRaw, "loan", "", "loan id")
	cmd.Flags().StringVar(&memberRaw, "member", "", "member holding the item")
	cmd.Flags().StringVar(&itemRaw, "item", "", "item to return")

	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	var memberRaw, itemRaw string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Preview whether a member may borrow an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			memberID, itemID, err := parseMemberAndItem(memberRaw, itemRaw)
			if err != nil {
				return err
			}

			now, err := a.now()
			if err != nil {
				return err
			}

			decision, err := a.service.CheckEligibility(cmd.Context(), memberID, itemID, now)
			if err != nil {
				return err
			}

			return a.print(toDecisionView(decision))
		},
	}

	cmd.Flags().StringVar(&memberRaw, "member", "", "member id")
	cmd.Flags().StringVar(&itemRaw, "item", "", "item id")
	_ = cmd.MarkFlagRequired("member")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

func newStandingCommand(a *app) *cobra.Command {
	var memberRaw string

	cmd := &cobra.Command{
		Use:   "standing",
		Short: "Show how many loans a member holds and whether any is overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			memberID, err := parseID("member", memberRaw)
			if err != nil {
				return err
			}

			now, err := a.now()
			if err != nil {
				return err
			}

			standing, err := a.service.MemberStanding(cmd.Context(), memberID, now)
			if err != nil {
				return err
			}

			return a.print(toStandingView(standing))
		},
	}

	cmd.Flags().StringVar(&memberRaw, "member", "", "member id")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func newLoansCommand(a *app) *cobra.Command {
	var memberRaw string

	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List all loans of a member, returned ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			memberID, err := parseID("member", memberRaw)
			if err != nil {
				return err
			}

			now, err := a.now()
			if err != nil {
				return err
			}

			views, err := a.service.LoansOfMember(cmd.Context(), memberID, now)
			if err != nil {
				return err
			}

			return a.print(toLoanViews(views))
		},
	}

	cmd.Flags().StringVar(&memberRaw, "member", "", "member id")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func newOverdueCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List open loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := a.now()
			if err != nil {
				return err
			}

			views, err := a.service.OverdueLoans(cmd.Context(), now)
			if err != nil {
				return err
			}

			return a.print(toLoanViews(views))
		},
	}
}

func parseMemberAndItem(memberRaw, itemRaw string) (uuid.UUID, uuid.UUID, error) {
	memberID, err := parseID("member", memberRaw)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	itemID, err := parseID("item", itemRaw)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	return memberID, itemID, nil
}
