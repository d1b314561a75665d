package services

import (
	"context"
	"fmt"
	"time"

	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/live"
	"github.com/randosoru/apiserver/internal/store"
	"github.com/randosoru/apiserver/types"
)

const (
	minWeek = 1
	maxWeek = 99

	maxCommentLength  = 100
	maxUnitStar       = 6
	maxPositionLength = 20

	defaultPageLimit = 100
	maxPageLimit     = 100
)

// RecordRepository defines persistence operations for records.
type RecordRepository interface {
	Create(ctx context.Context, record types.Record) (types.Record, error)
	Update(ctx context.Context, record types.Record) (types.Record, error)
	GetOwned(ctx context.Context, formID string, week, id, userID int) (types.Record, error)
	ListByWeek(ctx context.Context, formID string, week int) ([]store.RecordWithUser, error)
	ListByWeekBoss(ctx context.Context, formID string, week, boss int) ([]store.RecordWithUser, error)
	ListAll(ctx context.Context, formID string, modifiedAt, createdAt *time.Time) ([]store.RecordWithUser, error)
	ListByUser(ctx context.Context, userID int, formID string, modifiedAt, createdAt *time.Time, limit, offset int) ([]store.RecordWithUser, int, error)
}

// UserGetter is the slice of the user repository the ledger needs to
// externalize submitters.
type UserGetter interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// SubmitInput is the client payload of a record submission. A non-zero
// RecordID requests an update of an existing record; otherwise a new
// record is created.
type SubmitInput struct {
	RecordID int               `json:"id"`
	Month    int               `json:"month"`
	Status   int               `json:"status"`
	Damage   int64             `json:"damage"`
	Comment  string            `json:"comment"`
	Team     []types.TeamEntry `json:"team"`
}

// RecordService encapsulates record use-cases: the submit upsert, the
// list reads, and externalization. It never caches form or record
// state; storage is canonical so the push channel stays truthful.
type RecordService struct {
	records  RecordRepository
	forms    FormRepository
	users    UserGetter
	codec    *identity.Codec
	notifier Notifier
}

func NewRecordService(records RecordRepository, forms FormRepository, users UserGetter, codec *identity.Codec, notifier Notifier) *RecordService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RecordService{
		records:  records,
		forms:    forms,
		users:    users,
		codec:    codec,
		notifier: notifier,
	}
}

// Submit creates or updates a record against a form's boss slot and
// broadcasts the change to the form's room. The returned bool reports
// whether a new record was created.
//
// Updates are keyed by (form, week, record id, submitter): a record id
// belonging to another submitter surfaces as store.ErrNotFound. Two
// concurrent updates to the same record may interleave; last write wins.
func (s *RecordService) Submit(ctx context.Context, formID string, week, boss, userID int, in SubmitInput) (types.ExternalRecord, bool, error) {
	if err := validateSubmit(week, boss, in); err != nil {
		return types.ExternalRecord{}, false, err
	}

	form, err := s.forms.Get(ctx, formID)
	if err != nil {
		return types.ExternalRecord{}, false, err
	}
	if form.Locked() {
		return types.ExternalRecord{}, false, ErrFormLocked
	}

	var record types.Record
	created := false
	if in.RecordID != 0 {
		record, err = s.records.GetOwned(ctx, formID, week, in.RecordID, userID)
		if err != nil {
			return types.ExternalRecord{}, false, err
		}
		record.Status = in.Status
		record.Damage = in.Damage
		record.Comment = in.Comment
		record.Team = in.Team
		record, err = s.records.Update(ctx, record)
	} else {
		month := in.Month
		if month == 0 {
			month = form.Month
		}
		record, err = s.records.Create(ctx, types.Record{
			FormID:  formID,
			Month:   month,
			Week:    week,
			Boss:    boss,
			UserID:  userID,
			Status:  in.Status,
			Damage:  in.Damage,
			Comment: in.Comment,
			Team:    in.Team,
		})
		created = true
	}
	if err != nil {
		return types.ExternalRecord{}, false, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.ExternalRecord{}, false, err
	}
	view := s.externalize(record, user)

	eventType := live.EventRecordUpdated
	if created {
		eventType = live.EventRecordCreated
	}
	s.notifier.Broadcast(formID, eventType, view)

	return view, created, nil
}

func (s *RecordService) ListWeek(ctx context.Context, formID string, week int) ([]types.ExternalRecord, error) {
	if week < minWeek || week > maxWeek {
		return nil, fmt.Errorf("%w: week %d out of range", ErrValidation, week)
	}
	items, err := s.records.ListByWeek(ctx, formID, week)
	if err != nil {
		return nil, err
	}
	return s.externalizeAll(items), nil
}

func (s *RecordService) ListWeekBoss(ctx context.Context, formID string, week, boss int) ([]types.ExternalRecord, error) {
	if week < minWeek || week > maxWeek {
		return nil, fmt.Errorf("%w: week %d out of range", ErrValidation, week)
	}
	if boss < 1 || boss > types.MaxBossSlots {
		return nil, fmt.Errorf("%w: boss number %d out of range", ErrValidation, boss)
	}
	items, err := s.records.ListByWeekBoss(ctx, formID, week, boss)
	if err != nil {
		return nil, err
	}
	return s.externalizeAll(items), nil
}

// ListAll returns a form's records, optionally windowed to the 24 hours
// starting at the given timestamps.
func (s *RecordService) ListAll(ctx context.Context, formID string, modifiedAt, createdAt *time.Time) ([]types.ExternalRecord, error) {
	items, err := s.records.ListAll(ctx, formID, modifiedAt, createdAt)
	if err != nil {
		return nil, err
	}
	return s.externalizeAll(items), nil
}

// ListUser returns one submitter's records across forms, newest first.
func (s *RecordService) ListUser(ctx context.Context, userID int, formID string, modifiedAt, createdAt *time.Time, limit, offset int) ([]types.ExternalRecord, int, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.records.ListByUser(ctx, userID, formID, modifiedAt, createdAt, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.externalizeAll(items), total, nil
}

// externalize maps a stored record to its public view. Pure: the stored
// entities are never touched.
func (s *RecordService) externalize(record types.Record, user types.User) types.ExternalRecord {
	return types.ExternalRecord{
		ID:           record.ID,
		FormID:       record.FormID,
		Month:        record.Month,
		Week:         record.Week,
		Boss:         record.Boss,
		Status:       record.Status,
		Damage:       record.Damage,
		Comment:      record.Comment,
		Team:         record.Team,
		CreatedAt:    record.CreatedAt,
		LastModified: record.LastModified,
		User: types.ExternalUser{
			ID:     s.codec.Encode(user.ID),
			Name:   user.Name,
			Avatar: user.Avatar,
			UID:    user.UID,
		},
	}
}

func (s *RecordService) externalizeAll(items []store.RecordWithUser) []types.ExternalRecord {
	views := make([]types.ExternalRecord, 0, len(items))
	for _, item := range items {
		views = append(views, s.externalize(item.Record, item.User))
	}
	return views
}

func validateSubmit(week, boss int, in SubmitInput) error {
	if week < minWeek || week > maxWeek {
		return fmt.Errorf("%w: week %d out of range", ErrValidation, week)
	}
	if boss < 1 || boss > types.MaxBossSlots {
		return fmt.Errorf("%w: boss number %d out of range", ErrValidation, boss)
	}
	if !types.ValidStatus(in.Status) {
		return fmt.Errorf("%w: status %d not settable", ErrValidation, in.Status)
	}
	if in.Damage < 0 || in.Damage > types.MaxDamage {
		return fmt.Errorf("%w: damage %d out of range", ErrValidation, in.Damage)
	}
	if len(in.Team) > types.MaxTeamSize {
		return fmt.Errorf("%w: more than %d team entries", ErrValidation, types.MaxTeamSize)
	}
	for _, entry := range in.Team {
		if entry.UnitID < 1 {
			return fmt.Errorf("%w: unit id %d out of range", ErrValidation, entry.UnitID)
		}
		if entry.Star < 0 || entry.Star > maxUnitStar {
			return fmt.Errorf("%w: star %d out of range", ErrValidation, entry.Star)
		}
		if len(entry.Position) > maxPositionLength {
			return fmt.Errorf("%w: position label too long", ErrValidation)
		}
	}
	if len(in.Comment) > maxCommentLength {
		return fmt.Errorf("%w: comment too long", ErrValidation)
	}
	if in.RecordID < 0 {
		return fmt.Errorf("%w: record id %d out of range", ErrValidation, in.RecordID)
	}
	return nil
}
