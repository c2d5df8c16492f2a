package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var ErrInvalidID = errors.New("invalid id")

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lendingctl",
		Short:         "Administer the media library lending ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.driver, "driver", "", "storage driver, overrides LENDING_DB_DRIVER (pgx.pool, sql.db, sqlx.db, sqlite, memory)")
	root.PersistentFlags().StringVar(&a.nowRaw, "now", "", "evaluation time in RFC 3339, defaults to the current time")

	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		newMigrateCommand(a),
		newItemCommand(a),
		newMemberCommand(a),
		newRuleCommand(a),
		newBorrowCommand(a),
		newReturnCommand(a),
		newCheckCommand(a),
		newStandingCommand(a),
		newLoansCommand(a),
		newOverdueCommand(a),
		newSimulateCommand(a),
	)

	return root
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.migrator == nil {
				return a.print(map[string]string{"migrated": "nothing to migrate for driver " + a.cfg.DBDriver})
			}

			if err := a.migrator.Migrate(cmd.Context()); err != nil {
				return err
			}

			return a.print(map[string]string{"migrated": a.cfg.DBDriver})
		},
	}
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidID, fmt.Errorf("--%s %q: %w", name, raw, err))
	}

	return id, nil
}
