package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

func newItemCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage catalog items",
	}

	cmd.AddCommand(newItemAddCommand(a), newItemListCommand(a), newItemAvailabilityCommand(a))

	return cmd
}

func newItemAddCommand(a *app) *cobra.Command {
	var name, kind string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an available item to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			itemKind, err := core.ParseItemKind(kind)
			if err != nil {
				return err
			}

			id, err := uuid.NewV7()
			if err != nil {
				return err
			}

			item := core.NewItem(id, name, itemKind)
			if err := a.store.SaveItem(cmd.Context(), item); err != nil {
				return err
			}

			return a.print(toItemView(item))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "title of the item")
	cmd.Flags().StringVar(&kind, "kind", string(core.ItemKindBook), "book, dvd, cd or board_game")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newItemListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.store.ListItems(cmd.Context())
			if err != nil {
				return err
			}

			return a.print(toItemViews(items))
		},
	}
}

func newItemAvailabilityCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "availability <item-id> <true|false>",
		Short: "Take an item out of circulation or put it back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item", args[0])
			if err != nil {
				return err
			}

			available, err := strconv.ParseBool(args[1])
			if err != nil {
				return err
			}

			item, err := a.service.SetItemAvailability(cmd.Context(), itemID, available)
			if err != nil {
				return err
			}

			return a.print(toItemView(item))
		},
	}
}

func newMemberCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage members",
	}

	cmd.AddCommand(
		newMemberAddCommand(a),
		newMemberBlockCommand(a, "block", true),
		newMemberBlockCommand(a, "unblock", false),
		newMemberListCommand(a),
	)

	return cmd
}

func newMemberAddCommand(a *app) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}

			member := core.NewMember(id, name, email)
			if err := a.store.SaveMember(cmd.Context(), member); err != nil {
				return err
			}

			return a.print(toMemberView(member))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "contact address")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newMemberBlockCommand(a *app, use string, blocked bool) *cobra.Command {
	short := "Block a member from borrowing"
	if !blocked {
		short = "Lift the block of a member"
	}

	return &cobra.Command{
		Use:   use + " <member-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID("member", args[0])
			if err != nil {
				return err
			}

			var member core.Member

			err = a.store.InTx(cmd.Context(), func(ctx context.Context, tx ledger.Tx) error {
				locked, lockErr := tx.LockMember(ctx, memberID)
				if errors.Is(lockErr, ledger.ErrNotFound) {
					return fmt.Errorf("member %s: %w", memberID, core.ErrMemberNotFound)
				}
				if lockErr != nil {
					return lockErr
				}

				locked.Blocked = blocked
				member = locked

				return tx.SaveMember(ctx, locked)
			})
			if err != nil {
				return err
			}

			return a.print(toMemberView(member))
		},
	}
}

func newMemberListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			members, err := a.store.ListMembers(cmd.Context())
			if err != nil {
				return err
			}

			return a.print(toMemberViews(members))
		},
	}
}

func newRuleCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage borrowing rules",
	}

	cmd.AddCommand(newRuleSetCommand(a), newRuleListCommand(a))

	return cmd
}

func newRuleSetCommand(a *app) *cobra.Command {
	var (
		name     string
		maxLoans int
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a borrowing rule, activating it unless --inactive is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}

			rule, err := core.BuildBorrowingRule(id, name, maxLoans, !inactive)
			if err != nil {
				return err
			}

			if err := a.store.SaveRule(cmd.Context(), rule); err != nil {
				return err
			}

			return a.print(toRuleView(rule))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "rule name")
	cmd.Flags().IntVar(&maxLoans, "max", core.DefaultMaxConcurrentLoans, "maximum concurrent open loans per member")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "store the rule without activating it")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRuleListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List borrowing rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := a.store.ListRules(cmd.Context())
			if err != nil {
				return err
			}

			return a.print(toRuleViews(rules))
		},
	}
}
