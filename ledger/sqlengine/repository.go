package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
	"github.com/mediatheque-go/lending/ledger/sqlengine/internal/adapters"
)

const (
	colID                 = "id"
	colName               = "name"
	colKind               = "kind"
	colAvailable          = "available"
	colBorrowable         = "borrowable"
	colEmail              = "email"
	colBlocked            = "blocked"
	colActive             = "active"
	colMemberID           = "member_id"
	colItemID             = "item_id"
	colBorrowedAt         = "borrowed_at"
	colDueAt              = "due_at"
	colReturnedAt         = "returned_at"
	colMaxConcurrentLoans = "max_concurrent_loans"
)

type scanner interface {
	Scan(dest ...any) error
}

// repository implements ledger.Tx on top of a connection or a transaction.
// Locking reads only lock when inTx is set and the dialect supports row locks.
type repository struct {
	store *Store
	q     adapters.Querier
	inTx  bool
}

var _ ledger.Tx = (*repository)(nil)

func (r *repository) GetItem(ctx context.Context, id uuid.UUID) (core.Item, error) {
	return queryOne(ctx, r, operationGetItem, r.selectItems().Where(goqu.C(colID).Eq(id.String())), scanItem)
}

func (r *repository) LockItem(ctx context.Context, id uuid.UUID) (core.Item, error) {
	return queryOne(ctx, r, operationLockItem, r.forUpdate(r.selectItems().Where(goqu.C(colID).Eq(id.String()))), scanItem)
}

func (r *repository) ListItems(ctx context.Context) ([]core.Item, error) {
	return queryAll(ctx, r, operationListItems, r.selectItems().Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()), scanItem)
}

func (r *repository) SaveItem(ctx context.Context, item core.Item) error {
	update := r.store.dialect.
		Update(r.store.tables.items).
		Set(goqu.Record{
			colName:       item.Name,
			colKind:       string(item.Kind),
			colBorrowable: item.Borrowable,
		}).
		Where(goqu.C(colID).Eq(item.ID.String()))

	insert := r.store.dialect.
		Insert(r.store.tables.items).
		Rows(goqu.Record{
			colID:         item.ID.String(),
			colName:       item.Name,
			colKind:       string(item.Kind),
			colAvailable:  item.Available,
			colBorrowable: item.Borrowable,
		})

	return r.upsert(ctx, operationSaveItem, update, insert)
}

func (r *repository) SetItemAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	update := r.store.dialect.
		Update(r.store.tables.items).
		Set(goqu.Record{colAvailable: available}).
		Where(goqu.C(colID).Eq(id.String()))

	rowsAffected, err := r.execDataset(ctx, operationSetAvailability, update)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

func (r *repository) GetMember(ctx context.Context, id uuid.UUID) (core.Member, error) {
	return queryOne(ctx, r, operationGetMember, r.selectMembers().Where(goqu.C(colID).Eq(id.String())), scanMember)
}

func (r *repository) LockMember(ctx context.Context, id uuid.UUID) (core.Member, error) {
	return queryOne(ctx, r, operationLockMember, r.forUpdate(r.selectMembers().Where(goqu.C(colID).Eq(id.String()))), scanMember)
}

func (r *repository) ListMembers(ctx context.Context) ([]core.Member, error) {
	return queryAll(ctx, r, operationListMembers, r.selectMembers().Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()), scanMember)
}

func (r *repository) SaveMember(ctx context.Context, member core.Member) error {
	record := goqu.Record{
		colName:    member.Name,
		colEmail:   member.Email,
		colBlocked: member.Blocked,
		colActive:  member.Active,
	}

	update := r.store.dialect.
		Update(r.store.tables.members).
		Set(record).
		Where(goqu.C(colID).Eq(member.ID.String()))

	insertRecord := goqu.Record{colID: member.ID.String()}
	for key, value := range record {
		insertRecord[key] = value
	}

	insert := r.store.dialect.
		Insert(r.store.tables.members).
		Rows(insertRecord)

	return r.upsert(ctx, operationSaveMember, update, insert)
}

func (r *repository) GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return queryOne(ctx, r, operationGetLoan, r.selectLoans().Where(goqu.C(colID).Eq(id.String())), scanLoan)
}

func (r *repository) LockLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return queryOne(ctx, r, operationLockLoan, r.forUpdate(r.selectLoans().Where(goqu.C(colID).Eq(id.String()))), scanLoan)
}

func (r *repository) OpenLoanOfItem(ctx context.Context, itemID uuid.UUID) (core.Loan, error) {
	ds := r.selectLoans().Where(
		goqu.C(colItemID).Eq(itemID.String()),
		goqu.C(colReturnedAt).IsNull(),
	)

	return queryOne(ctx, r, operationOpenLoanOfItem, ds, scanLoan)
}

func (r *repository) OpenLoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	ds := r.selectLoans().
		Where(
			goqu.C(colMemberID).Eq(memberID.String()),
			goqu.C(colReturnedAt).IsNull(),
		).
		Order(goqu.C(colBorrowedAt).Desc(), goqu.C(colID).Asc())

	return queryAll(ctx, r, operationOpenLoansOfMember, ds, scanLoan)
}

func (r *repository) LoansOfMember(ctx context.Context, memberID uuid.UUID) ([]core.Loan, error) {
	ds := r.selectLoans().
		Where(goqu.C(colMemberID).Eq(memberID.String())).
		Order(goqu.C(colBorrowedAt).Desc(), goqu.C(colID).Asc())

	return queryAll(ctx, r, operationLoansOfMember, ds, scanLoan)
}

func (r *repository) OverdueLoans(ctx context.Context, now time.Time) ([]core.Loan, error) {
	ds := r.selectLoans().
		Where(
			goqu.C(colReturnedAt).IsNull(),
			goqu.C(colDueAt).Lt(core.ToUnixMicro(now)),
		).
		Order(goqu.C(colDueAt).Asc(), goqu.C(colID).Asc())

	return queryAll(ctx, r, operationOverdueLoans, ds, scanLoan)
}

func (r *repository) InsertLoan(ctx context.Context, loan core.Loan) error {
	record := goqu.Record{
		colID:         loan.ID.String(),
		colMemberID:   loan.MemberID.String(),
		colItemID:     loan.ItemID.String(),
		colBorrowedAt: core.ToUnixMicro(loan.BorrowedAt),
		colDueAt:      core.ToUnixMicro(loan.DueAt),
		colReturnedAt: nil,
	}

	if loan.ReturnedAt != nil {
		record[colReturnedAt] = core.ToUnixMicro(*loan.ReturnedAt)
	}

	_, err := r.execDataset(ctx, operationInsertLoan, r.store.dialect.Insert(r.store.tables.loans).Rows(record))
	if err != nil {
		if isUniqueViolation(err) {
			r.store.recordOpenLoanConflict(ctx, loan.ItemID)
			return ledger.ErrOpenLoanExists
		}

		return err
	}

	return nil
}

func (r *repository) CloseLoan(ctx context.Context, id uuid.UUID, returnedAt time.Time) error {
	update := r.store.dialect.
		Update(r.store.tables.loans).
		Set(goqu.Record{colReturnedAt: core.ToUnixMicro(returnedAt)}).
		Where(
			goqu.C(colID).Eq(id.String()),
			goqu.C(colReturnedAt).IsNull(),
		)

	rowsAffected, err := r.execDataset(ctx, operationCloseLoan, update)
	if err != nil {
		return err
	}

	if rowsAffected > 0 {
		return nil
	}

	if _, getErr := r.GetLoan(ctx, id); getErr != nil {
		return getErr
	}

	return ledger.ErrLoanAlreadyClosed
}

func (r *repository) ActiveRule(ctx context.Context) (core.BorrowingRule, error) {
	ds := r.selectRules().
		Where(goqu.C(colActive).Eq(true)).
		Order(goqu.C(colName).Asc())

	return queryOne(ctx, r, operationActiveRule, ds, scanRule)
}

func (r *repository) ListRules(ctx context.Context) ([]core.BorrowingRule, error) {
	return queryAll(ctx, r, operationListRules, r.selectRules().Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()), scanRule)
}

func (r *repository) SaveRule(ctx context.Context, rule core.BorrowingRule) error {
	if rule.Active {
		deactivate := r.store.dialect.
			Update(r.store.tables.rules).
			Set(goqu.Record{colActive: false}).
			Where(
				goqu.C(colID).Neq(rule.ID.String()),
				goqu.C(colActive).Eq(true),
			)

		if _, err := r.execDataset(ctx, operationSaveRule, deactivate); err != nil {
			return err
		}
	}

	record := goqu.Record{
		colName:               rule.Name,
		colMaxConcurrentLoans: rule.MaxConcurrentLoans,
		colActive:             rule.Active,
	}

	update := r.store.dialect.
		Update(r.store.tables.rules).
		Set(record).
		Where(goqu.C(colID).Eq(rule.ID.String()))

	insertRecord := goqu.Record{colID: rule.ID.String()}
	for key, value := range record {
		insertRecord[key] = value
	}

	insert := r.store.dialect.
		Insert(r.store.tables.rules).
		Rows(insertRecord)

	return r.upsert(ctx, operationSaveRule, update, insert)
}

func (r *repository) selectItems() *goqu.SelectDataset {
	return r.store.dialect.
		From(r.store.tables.items).
		Select(colID, colName, colKind, colAvailable, colBorrowable)
}

func (r *repository) selectMembers() *goqu.SelectDataset {
	return r.store.dialect.
		From(r.store.tables.members).
		Select(colID, colName, colEmail, colBlocked, colActive)
}

func (r *repository) selectLoans() *goqu.SelectDataset {
	return r.store.dialect.
		From(r.store.tables.loans).
		Select(colID, colMemberID, colItemID, colBorrowedAt, colDueAt, colReturnedAt)
}

func (r *repository) selectRules() *goqu.SelectDataset {
	return r.store.dialect.
		From(r.store.tables.rules).
		Select(colID, colName, colMaxConcurrentLoans, colActive)
}

// forUpdate adds a row lock on PostgreSQL. SQLite has no row locks, its single
// connection already serializes transactions.
func (r *repository) forUpdate(ds *goqu.SelectDataset) *goqu.SelectDataset {
	if r.inTx && r.store.dialectName == dialectPostgres {
		return ds.ForUpdate(exp.Wait)
	}

	return ds
}

// upsert updates the row and inserts it when the update did not match.
func (r *repository) upsert(ctx context.Context, operation string, update *goqu.UpdateDataset, insert *goqu.InsertDataset) error {
	rowsAffected, err := r.execDataset(ctx, operation, update)
	if err != nil {
		return err
	}

	if rowsAffected > 0 {
		return nil
	}

	_, err = r.execDataset(ctx, operation, insert)

	return err
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (r *repository) execDataset(ctx context.Context, operation string, ds sqlBuilder) (int64, error) {
	sqlQuery, _, toSQLErr := ds.ToSQL()
	if toSQLErr != nil {
		r.store.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrOperation, operation)
		return 0, errors.Join(ledger.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	result, execErr := r.q.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	r.store.logQueryWithDuration(ctx, operation, duration, logAttrQuery, sqlQuery)

	if execErr != nil {
		r.store.recordQueryMetrics(ctx, operation, duration, statusError)
		if !isUniqueViolation(execErr) {
			r.store.logError(ctx, logMsgDBExecFailed, execErr, logAttrOperation, operation, logAttrQuery, sqlQuery)
		}

		return 0, driverError(ledger.ErrQueryFailed, execErr)
	}

	r.store.recordQueryMetrics(ctx, operation, duration, statusSuccess)

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return 0, errors.Join(ledger.ErrQueryFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

func queryAll[T any](
	ctx context.Context,
	r *repository,
	operation string,
	ds *goqu.SelectDataset,
	scan func(scanner) (T, error),
) ([]T, error) {

	ctx, tracer := r.startQueryTracing(ctx, operation)

	sqlQuery, _, toSQLErr := ds.ToSQL()
	if toSQLErr != nil {
		r.store.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrOperation, operation)
		tracer.finishError(errorTypeBuildQuery, 0)

		return nil, errors.Join(ledger.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := r.q.Query(ctx, sqlQuery)
	duration := time.Since(start)
	r.store.logQueryWithDuration(ctx, operation, duration, logAttrQuery, sqlQuery)

	if queryErr != nil {
		r.store.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrOperation, operation, logAttrQuery, sqlQuery)
		r.store.recordQueryMetrics(ctx, operation, duration, statusError)
		tracer.finishError(errorTypeDatabaseQuery, duration)

		return nil, driverError(ledger.ErrQueryFailed, queryErr)
	}
	defer r.store.closeRows(ctx, rows)

	result := make([]T, 0)
	for rows.Next() {
		value, scanErr := scan(rows)
		if scanErr != nil {
			r.store.logError(ctx, logMsgScanRowFailed, scanErr, logAttrOperation, operation)
			r.store.recordQueryMetrics(ctx, operation, duration, statusError)
			tracer.finishError(errorTypeRowScan, duration)

			return nil, errors.Join(ledger.ErrScanningDBRowFailed, scanErr)
		}

		result = append(result, value)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		r.store.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrOperation, operation)
		r.store.recordQueryMetrics(ctx, operation, duration, statusError)
		tracer.finishError(errorTypeDatabaseQuery, duration)

		return nil, driverError(ledger.ErrQueryFailed, rowsErr)
	}

	r.store.recordQueryMetrics(ctx, operation, duration, statusSuccess)
	r.store.recordValue(ctx, metricRowsReturned, float64(len(result)), map[string]string{spanAttrOperation: operation})
	tracer.finishSuccess(len(result), duration)

	return result, nil
}

func queryOne[T any](
	ctx context.Context,
	r *repository,
	operation string,
	ds *goqu.SelectDataset,
	scan func(scanner) (T, error),
) (T, error) {

	var empty T

	all, err := queryAll(ctx, r, operation, ds, scan)
	if err != nil {
		return empty, err
	}

	if len(all) == 0 {
		return empty, ledger.ErrNotFound
	}

	return all[0], nil
}

func scanItem(row scanner) (core.Item, error) {
	var id, name, kind string
	var available, borrowable bool

	if err := row.Scan(&id, &name, &kind, &available, &borrowable); err != nil {
		return core.Item{}, err
	}

	itemID, err := uuid.Parse(id)
	if err != nil {
		return core.Item{}, err
	}

	itemKind, err := core.ParseItemKind(kind)
	if err != nil {
		return core.Item{}, err
	}

	return core.Item{
		ID:         itemID,
		Name:       name,
		Kind:       itemKind,
		Available:  available,
		Borrowable: borrowable,
	}, nil
}

func scanMember(row scanner) (core.Member, error) {
	var id, name, email string
	var blocked, active bool

	if err := row.Scan(&id, &name, &email, &blocked, &active); err != nil {
		return core.Member{}, err
	}

	memberID, err := uuid.Parse(id)
	if err != nil {
		return core.Member{}, err
	}

	return core.Member{
		ID:      memberID,
		Name:    name,
		Email:   email,
		Blocked: blocked,
		Active:  active,
	}, nil
}

func scanLoan(row scanner) (core.Loan, error) {
	var id, memberID, itemID string
	var borrowedAt, dueAt int64
	var returnedAt sql.NullInt64

	if err := row.Scan(&id, &memberID, &itemID, &borrowedAt, &dueAt, &returnedAt); err != nil {
		return core.Loan{}, err
	}

	loan := core.Loan{
		BorrowedAt: core.FromUnixMicro(borrowedAt),
		DueAt:      core.FromUnixMicro(dueAt),
	}

	var err error
	if loan.ID, err = uuid.Parse(id); err != nil {
		return core.Loan{}, err
	}
	if loan.MemberID, err = uuid.Parse(memberID); err != nil {
		return core.Loan{}, err
	}
	if loan.ItemID, err = uuid.Parse(itemID); err != nil {
		return core.Loan{}, err
	}

	if returnedAt.Valid {
		ts := core.FromUnixMicro(returnedAt.Int64)
		loan.ReturnedAt = &ts
	}

	return loan, nil
}

func scanRule(row scanner) (core.BorrowingRule, error) {
	var id, name string
	var maxConcurrentLoans int
	var active bool

	if err := row.Scan(&id, &name, &maxConcurrentLoans, &active); err != nil {
		return core.BorrowingRule{}, err
	}

	ruleID, err := uuid.Parse(id)
	if err != nil {
		return core.BorrowingRule{}, err
	}

	return core.BuildBorrowingRule(ruleID, name, maxConcurrentLoans, active)
}
