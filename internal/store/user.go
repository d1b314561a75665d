package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/randosoru/apiserver/types"
)

// UserRepository handles persistence for users and their oauth links.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, name, avatar, uid, status, privacy, guild_id, created_at
		FROM users
		WHERE id = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Avatar,
		&user.UID,
		&user.Status,
		&user.Privacy,
		&user.GuildID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// GetByOauth resolves a (platform, external id) pair to the linked user.
func (r *UserRepository) GetByOauth(ctx context.Context, platform int, externalID string) (types.OauthLink, types.User, error) {
	const query = `
		SELECT l.platform, l.external_id, l.user_id,
		       u.id, u.name, u.avatar, u.uid, u.status, u.privacy, u.guild_id, u.created_at
		FROM oauth_links l
		JOIN users u ON u.id = l.user_id
		WHERE l.platform = $1 AND l.external_id = $2`
	var link types.OauthLink
	var user types.User
	err := r.db.QueryRowContext(ctx, query, platform, externalID).Scan(
		&link.Platform,
		&link.ExternalID,
		&link.UserID,
		&user.ID,
		&user.Name,
		&user.Avatar,
		&user.UID,
		&user.Status,
		&user.Privacy,
		&user.GuildID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.OauthLink{}, types.User{}, ErrNotFound
		}
		return types.OauthLink{}, types.User{}, err
	}
	return link, user, nil
}

// CreateWithLink inserts a user and its oauth link in one transaction.
func (r *UserRepository) CreateWithLink(ctx context.Context, user types.User, platform int, externalID string) (types.User, error) {
	user.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertUser = `
		INSERT INTO users (name, avatar, uid, status, privacy, guild_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertUser,
		user.Name,
		user.Avatar,
		user.UID,
		user.Status,
		user.Privacy,
		user.GuildID,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}

	const insertLink = `
		INSERT INTO oauth_links (platform, external_id, user_id)
		VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertLink, platform, externalID, user.ID); err != nil {
		return types.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpdateLogin refreshes the profile fields taken from the oauth provider.
func (r *UserRepository) UpdateLogin(ctx context.Context, id int, name, avatar string) error {
	const query = `
		UPDATE users
		SET name = $1,
			avatar = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, name, avatar, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
