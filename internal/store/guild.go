package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/randosoru/apiserver/types"
)

// GuildRepository handles persistence for guilds.
type GuildRepository struct {
	db *sql.DB
}

func NewGuildRepository(db *sql.DB) *GuildRepository {
	return &GuildRepository{db: db}
}

func (r *GuildRepository) GetByID(ctx context.Context, id int) (types.Guild, error) {
	const query = `
		SELECT id, name, announcement, owner_id
		FROM guilds
		WHERE id = $1`
	var guild types.Guild
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&guild.ID,
		&guild.Name,
		&guild.Announcement,
		&guild.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Guild{}, ErrNotFound
		}
		return types.Guild{}, err
	}
	return guild, nil
}
