package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/oauth"
	"github.com/randosoru/apiserver/internal/store"
	"github.com/randosoru/apiserver/types"
)

// UserRepository defines persistence operations for users and links.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByOauth(ctx context.Context, platform int, externalID string) (types.OauthLink, types.User, error)
	CreateWithLink(ctx context.Context, user types.User, platform int, externalID string) (types.User, error)
	UpdateLogin(ctx context.Context, id int, name, avatar string) error
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo  UserRepository
	codec *identity.Codec
}

func NewUserService(repo UserRepository, codec *identity.Codec) *UserService {
	return &UserService{repo: repo, codec: codec}
}

// LoginWithOauth upserts the account behind a fetched oauth profile:
// first login creates user + link, later logins refresh name and
// avatar. Banned accounts are rejected.
func (s *UserService) LoginWithOauth(ctx context.Context, platform int, profile oauth.Profile) (types.User, error) {
	link, user, err := s.repo.GetByOauth(ctx, platform, profile.ExternalID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.User{}, err
		}
		return s.repo.CreateWithLink(ctx, types.User{
			Name:   profile.Name,
			Avatar: profile.Avatar,
		}, platform, profile.ExternalID)
	}

	if user.Status != types.UserActive {
		return types.User{}, ErrBanned
	}
	if err := s.repo.UpdateLogin(ctx, link.UserID, profile.Name, profile.Avatar); err != nil {
		return types.User{}, err
	}
	user.Name = profile.Name
	user.Avatar = profile.Avatar
	return user, nil
}

// RegisterBot creates an account through the bot facade. Only platform
// 2 is accepted here: it is the one platform without an interactive
// login flow. A link that already exists is a conflict.
func (s *UserService) RegisterBot(ctx context.Context, platform int, externalID, name, avatar string) (types.ExternalProfile, error) {
	if platform != types.PlatformLine {
		return types.ExternalProfile{}, fmt.Errorf("%w: platform %d cannot register here", ErrValidation, platform)
	}

	_, _, err := s.repo.GetByOauth(ctx, platform, externalID)
	if err == nil {
		return types.ExternalProfile{}, ErrConflict
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.ExternalProfile{}, err
	}

	if avatar != "" {
		avatar += ".png"
	}
	user, err := s.repo.CreateWithLink(ctx, types.User{
		Name:   name,
		Avatar: avatar,
	}, platform, externalID)
	if err != nil {
		return types.ExternalProfile{}, err
	}
	return s.profileView(user), nil
}

// ResolvePlatformUser maps a platform-native id to the linked account,
// for bot-facade calls acting on a user's behalf.
func (s *UserService) ResolvePlatformUser(ctx context.Context, platform int, externalID string) (types.OauthLink, types.User, error) {
	link, user, err := s.repo.GetByOauth(ctx, platform, externalID)
	if err != nil {
		return types.OauthLink{}, types.User{}, err
	}
	if user.Status != types.UserActive {
		return types.OauthLink{}, types.User{}, ErrBanned
	}
	return link, user, nil
}

// Profile returns the full profile view. Reads by anyone other than the
// owner are blocked unless the profile is public.
func (s *UserService) Profile(ctx context.Context, userID int, self bool) (types.ExternalProfile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.ExternalProfile{}, err
	}
	if user.Privacy != types.PrivacyPublic && !self {
		return types.ExternalProfile{}, ErrPrivacyBlocked
	}
	return s.profileView(user), nil
}

// Brief returns the id/name/avatar view used in record listings.
func (s *UserService) Brief(ctx context.Context, userID int, self bool) (types.ExternalUser, error) {
	profile, err := s.Profile(ctx, userID, self)
	if err != nil {
		return types.ExternalUser{}, err
	}
	return profile.ExternalUser, nil
}

// DecodeExternalID resolves an opaque external code to the internal id.
func (s *UserService) DecodeExternalID(code string) (int, error) {
	return s.codec.Decode(code)
}

// EncodeID renders an internal id as its external code.
func (s *UserService) EncodeID(id int) string {
	return s.codec.Encode(id)
}

func (s *UserService) profileView(user types.User) types.ExternalProfile {
	return types.ExternalProfile{
		ExternalUser: types.ExternalUser{
			ID:     s.codec.Encode(user.ID),
			Name:   user.Name,
			Avatar: user.Avatar,
			UID:    user.UID,
		},
		Privacy:   user.Privacy,
		GuildID:   user.GuildID,
		CreatedAt: user.CreatedAt,
	}
}
