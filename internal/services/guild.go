package services

import (
	"context"

	"github.com/randosoru/apiserver/types"
)

// GuildRepository defines persistence operations for guilds.
type GuildRepository interface {
	GetByID(ctx context.Context, id int) (types.Guild, error)
}

// GuildService encapsulates guild lookups.
type GuildService struct {
	repo GuildRepository
}

func NewGuildService(repo GuildRepository) *GuildService {
	return &GuildService{repo: repo}
}

func (s *GuildService) Get(ctx context.Context, id int) (types.Guild, error) {
	return s.repo.GetByID(ctx, id)
}
