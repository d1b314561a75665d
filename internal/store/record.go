package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/randosoru/apiserver/types"
)

// RecordWithUser pairs a record with its submitter for list views.
type RecordWithUser struct {
	Record types.Record
	User   types.User
}

// RecordRepository handles persistence for battle records.
type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

const recordColumns = `r.id, r.form_id, r.month, r.week, r.boss, r.user_id,
	       r.status, r.damage, r.comment, r.team, r.created_at, r.last_modified`

const recordUserColumns = recordColumns + `,
	       u.id, u.name, u.avatar, u.uid, u.status, u.privacy, u.guild_id, u.created_at`

// Every read query below carries the notDeleted predicate so
// soft-deleted records never surface in list or lookup results.
var (
	getOwnedQuery = `
		SELECT ` + recordColumns + `
		FROM records r
		WHERE r.form_id = $1 AND r.week = $2 AND r.id = $3 AND r.user_id = $4
		  AND ` + notDeleted

	listByWeekQuery = `
		SELECT ` + recordUserColumns + `
		FROM records r
		JOIN users u ON u.id = r.user_id
		WHERE r.form_id = $1 AND r.week = $2 AND ` + notDeleted + `
		ORDER BY r.id`

	listByWeekBossQuery = `
		SELECT ` + recordUserColumns + `
		FROM records r
		JOIN users u ON u.id = r.user_id
		WHERE r.form_id = $1 AND r.week = $2 AND r.boss = $3 AND ` + notDeleted + `
		ORDER BY r.id`

	listAllQuery = `
		SELECT ` + recordUserColumns + `
		FROM records r
		JOIN users u ON u.id = r.user_id
		WHERE r.form_id = $1 AND ` + notDeleted

	listByUserWhere = `
		WHERE r.user_id = $1 AND ` + notDeleted
)

func (r *RecordRepository) Create(ctx context.Context, record types.Record) (types.Record, error) {
	now := time.Now()
	record.CreatedAt = now
	record.LastModified = now

	teamJSON, err := marshalTeam(record.Team)
	if err != nil {
		return types.Record{}, err
	}

	const query = `
		INSERT INTO records (form_id, month, week, boss, user_id, status,
			damage, comment, team, created_at, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		record.FormID,
		record.Month,
		record.Week,
		record.Boss,
		record.UserID,
		record.Status,
		record.Damage,
		record.Comment,
		teamJSON,
		record.CreatedAt,
		record.LastModified,
	).Scan(&record.ID); err != nil {
		return types.Record{}, err
	}
	return record, nil
}

func (r *RecordRepository) Update(ctx context.Context, record types.Record) (types.Record, error) {
	record.LastModified = time.Now()

	teamJSON, err := marshalTeam(record.Team)
	if err != nil {
		return types.Record{}, err
	}

	const query = `
		UPDATE records
		SET status = $1,
			damage = $2,
			comment = $3,
			team = $4,
			last_modified = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		record.Status,
		record.Damage,
		record.Comment,
		teamJSON,
		record.LastModified,
		record.ID,
	)
	if err != nil {
		return types.Record{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Record{}, err
	}
	if affected == 0 {
		return types.Record{}, ErrNotFound
	}
	return record, nil
}

// GetOwned locates a non-deleted record by id, scoped to the form, week
// and submitter. A record belonging to another submitter is reported as
// ErrNotFound, indistinguishable from a missing one.
func (r *RecordRepository) GetOwned(ctx context.Context, formID string, week, id, userID int) (types.Record, error) {
	row := r.db.QueryRowContext(ctx, getOwnedQuery, formID, week, id, userID)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Record{}, ErrNotFound
		}
		return types.Record{}, err
	}
	return record, nil
}

func (r *RecordRepository) ListByWeek(ctx context.Context, formID string, week int) ([]RecordWithUser, error) {
	return r.queryRecords(ctx, listByWeekQuery, formID, week)
}

func (r *RecordRepository) ListByWeekBoss(ctx context.Context, formID string, week, boss int) ([]RecordWithUser, error) {
	return r.queryRecords(ctx, listByWeekBossQuery, formID, week, boss)
}

// ListAll returns every non-deleted record of a form, optionally
// restricted to a 24-hour window [t, t+24h) on last_modified and/or
// created_at.
func (r *RecordRepository) ListAll(ctx context.Context, formID string, modifiedAt, createdAt *time.Time) ([]RecordWithUser, error) {
	query := listAllQuery
	args := []any{formID}
	query, args = appendDayWindow(query, args, "r.last_modified", modifiedAt)
	query, args = appendDayWindow(query, args, "r.created_at", createdAt)
	query += `
		ORDER BY r.id`
	return r.queryRecords(ctx, query, args...)
}

// ListByUser returns a user's non-deleted records, newest first,
// optionally restricted to one form and/or 24-hour windows, along with
// the total match count for pagination.
func (r *RecordRepository) ListByUser(ctx context.Context, userID int, formID string, modifiedAt, createdAt *time.Time, limit, offset int) ([]RecordWithUser, int, error) {
	where := listByUserWhere
	args := []any{userID}
	if formID != "" {
		args = append(args, formID)
		where += fmt.Sprintf(" AND r.form_id = $%d", len(args))
	}
	where, args = appendDayWindow(where, args, "r.last_modified", modifiedAt)
	where, args = appendDayWindow(where, args, "r.created_at", createdAt)

	countQuery := `
		SELECT COUNT(*)
		FROM records r` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `
		SELECT ` + recordUserColumns + `
		FROM records r
		JOIN users u ON u.id = r.user_id` + where + fmt.Sprintf(`
		ORDER BY r.last_modified DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	items, err := r.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *RecordRepository) queryRecords(ctx context.Context, query string, args ...any) ([]RecordWithUser, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []RecordWithUser{}
	for rows.Next() {
		var item RecordWithUser
		var teamJSON []byte
		if err := rows.Scan(
			&item.Record.ID,
			&item.Record.FormID,
			&item.Record.Month,
			&item.Record.Week,
			&item.Record.Boss,
			&item.Record.UserID,
			&item.Record.Status,
			&item.Record.Damage,
			&item.Record.Comment,
			&teamJSON,
			&item.Record.CreatedAt,
			&item.Record.LastModified,
			&item.User.ID,
			&item.User.Name,
			&item.User.Avatar,
			&item.User.UID,
			&item.User.Status,
			&item.User.Privacy,
			&item.User.GuildID,
			&item.User.CreatedAt,
		); err != nil {
			return nil, err
		}
		if item.Record.Team, err = unmarshalTeam(teamJSON); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanRecord(row *sql.Row) (types.Record, error) {
	var record types.Record
	var teamJSON []byte
	if err := row.Scan(
		&record.ID,
		&record.FormID,
		&record.Month,
		&record.Week,
		&record.Boss,
		&record.UserID,
		&record.Status,
		&record.Damage,
		&record.Comment,
		&teamJSON,
		&record.CreatedAt,
		&record.LastModified,
	); err != nil {
		return types.Record{}, err
	}
	team, err := unmarshalTeam(teamJSON)
	if err != nil {
		return types.Record{}, err
	}
	record.Team = team
	return record, nil
}

func marshalTeam(team []types.TeamEntry) ([]byte, error) {
	if team == nil {
		team = []types.TeamEntry{}
	}
	return json.Marshal(team)
}

func unmarshalTeam(data []byte) ([]types.TeamEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var team []types.TeamEntry
	if err := json.Unmarshal(data, &team); err != nil {
		return nil, fmt.Errorf("decode team column: %w", err)
	}
	return team, nil
}

// appendDayWindow adds a half-open [t, t+24h) condition on the given
// column when t is set.
func appendDayWindow(query string, args []any, column string, t *time.Time) (string, []any) {
	if t == nil {
		return query, args
	}
	args = append(args, *t, t.Add(24*time.Hour))
	query += fmt.Sprintf(" AND %s >= $%d AND %s < $%d", column, len(args)-1, column, len(args))
	return query, args
}
