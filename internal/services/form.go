package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/live"
	"github.com/randosoru/apiserver/internal/store"
	"github.com/randosoru/apiserver/types"
)

// FormRepository defines persistence operations for forms.
type FormRepository interface {
	Get(ctx context.Context, id string) (types.Form, error)
	Create(ctx context.Context, form types.Form) (types.Form, error)
	Update(ctx context.Context, form types.Form) (types.Form, error)
	ListBossSlots(ctx context.Context, formID string) ([]types.BossSlot, error)
	UpsertBossSlot(ctx context.Context, slot types.BossSlot) error
	SetBossImage(ctx context.Context, formID string, boss int, image string) error
}

// BossSlotUpdate is one slot upsert within a form patch.
type BossSlotUpdate struct {
	Boss  int      `json:"boss"`
	Name  string   `json:"name"`
	Image string   `json:"image"`
	HP    [4]int64 `json:"hp"`
}

// FormPatch carries the optional fields of a modify call.
type FormPatch struct {
	Month       *int             `json:"month"`
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Status      *int             `json:"status"`
	Bosses      []BossSlotUpdate `json:"bosses"`
}

// FormService encapsulates form use-cases.
type FormService struct {
	repo     FormRepository
	codec    *identity.Codec
	notifier Notifier

	// ownerCheck restricts Modify to the form's owner. The historical
	// behavior let any authenticated caller modify any form; keep that
	// unless the deployment opts in.
	ownerCheck bool
}

func NewFormService(repo FormRepository, codec *identity.Codec, notifier Notifier, ownerCheck bool) *FormService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &FormService{
		repo:       repo,
		codec:      codec,
		notifier:   notifier,
		ownerCheck: ownerCheck,
	}
}

// Get returns a form with its resolved boss roster: the persisted slot
// where one exists, else the static default for the form's month.
func (s *FormService) Get(ctx context.Context, formID string) (types.ExternalForm, error) {
	form, err := s.repo.Get(ctx, formID)
	if err != nil {
		return types.ExternalForm{}, err
	}
	return s.externalize(ctx, form)
}

// Create allocates a fresh form. Reachable only through the bot facade;
// the public create endpoint is deprecated.
func (s *FormService) Create(ctx context.Context, ownerID, month int, title, description string) (types.ExternalForm, error) {
	form := types.Form{
		ID:          newFormID(),
		OwnerID:     ownerID,
		Month:       month,
		Title:       title,
		Description: description,
		Status:      types.FormReadWrite,
	}
	form, err := s.repo.Create(ctx, form)
	if err != nil {
		return types.ExternalForm{}, err
	}
	return s.externalize(ctx, form)
}

// Modify applies a patch and up to MaxBossSlots slot upserts, then
// notifies the form's room. The owner restriction applies only when
// the service was built with it.
func (s *FormService) Modify(ctx context.Context, formID string, actorID int, patch FormPatch) (types.ExternalForm, error) {
	return s.modify(ctx, formID, actorID, s.ownerCheck, patch)
}

// ModifyOwned is Modify with the owner restriction always on. The bot
// facade acts on a platform user's behalf and may only touch that
// user's own forms.
func (s *FormService) ModifyOwned(ctx context.Context, formID string, ownerID int, patch FormPatch) (types.ExternalForm, error) {
	return s.modify(ctx, formID, ownerID, true, patch)
}

func (s *FormService) modify(ctx context.Context, formID string, actorID int, requireOwner bool, patch FormPatch) (types.ExternalForm, error) {
	if len(patch.Bosses) > types.MaxBossSlots {
		return types.ExternalForm{}, fmt.Errorf("%w: more than %d boss slots", ErrValidation, types.MaxBossSlots)
	}
	if patch.Status != nil {
		switch *patch.Status {
		case types.FormReadWrite, types.FormReadOnly, types.FormHidden:
		default:
			return types.ExternalForm{}, fmt.Errorf("%w: unknown form status %d", ErrValidation, *patch.Status)
		}
	}
	for _, update := range patch.Bosses {
		if update.Boss < 1 || update.Boss > types.MaxBossSlots {
			return types.ExternalForm{}, fmt.Errorf("%w: boss number %d out of range", ErrValidation, update.Boss)
		}
	}

	form, err := s.repo.Get(ctx, formID)
	if err != nil {
		return types.ExternalForm{}, err
	}
	if requireOwner && form.OwnerID != actorID {
		return types.ExternalForm{}, store.ErrNotFound
	}

	if patch.Month != nil {
		form.Month = *patch.Month
	}
	if patch.Title != nil {
		form.Title = *patch.Title
	}
	if patch.Description != nil {
		form.Description = *patch.Description
	}
	if patch.Status != nil {
		form.Status = *patch.Status
	}

	form, err = s.repo.Update(ctx, form)
	if err != nil {
		return types.ExternalForm{}, err
	}
	for _, update := range patch.Bosses {
		slot := types.BossSlot{
			FormID: formID,
			Boss:   update.Boss,
			Name:   update.Name,
			Image:  update.Image,
			HP:     update.HP,
		}
		if err := s.repo.UpsertBossSlot(ctx, slot); err != nil {
			return types.ExternalForm{}, err
		}
	}

	view, err := s.externalize(ctx, form)
	if err != nil {
		return types.ExternalForm{}, err
	}
	s.notifier.Broadcast(formID, live.EventFormModified, view)
	return view, nil
}

// AttachBossImage stores an uploaded image key on the slot and notifies
// the form's room.
func (s *FormService) AttachBossImage(ctx context.Context, formID string, boss int, key string) (types.ExternalForm, error) {
	if boss < 1 || boss > types.MaxBossSlots {
		return types.ExternalForm{}, fmt.Errorf("%w: boss number %d out of range", ErrValidation, boss)
	}
	form, err := s.repo.Get(ctx, formID)
	if err != nil {
		return types.ExternalForm{}, err
	}
	if err := s.repo.SetBossImage(ctx, formID, boss, key); err != nil {
		return types.ExternalForm{}, err
	}

	view, err := s.externalize(ctx, form)
	if err != nil {
		return types.ExternalForm{}, err
	}
	s.notifier.Broadcast(formID, live.EventFormModified, view)
	return view, nil
}

func (s *FormService) externalize(ctx context.Context, form types.Form) (types.ExternalForm, error) {
	slots, err := s.repo.ListBossSlots(ctx, form.ID)
	if err != nil {
		return types.ExternalForm{}, err
	}
	persisted := make(map[int]types.BossSlot, len(slots))
	for _, slot := range slots {
		persisted[slot.Boss] = slot
	}

	roster := make([]types.BossSlot, 0, types.MaxBossSlots)
	for boss := 1; boss <= types.MaxBossSlots; boss++ {
		slot, ok := persisted[boss]
		if !ok {
			slot = types.DefaultBossSlot(form.Month, boss)
		}
		slot.FormID = form.ID
		roster = append(roster, slot)
	}

	return types.ExternalForm{
		ID:          form.ID,
		OwnerID:     s.codec.Encode(form.OwnerID),
		Month:       form.Month,
		Title:       form.Title,
		Description: form.Description,
		Status:      form.Status,
		CreatedAt:   form.CreatedAt,
		Bosses:      roster,
	}, nil
}

// newFormID allocates the 128-bit hex identifier that keys a form and
// names its live-sync room.
func newFormID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the process is in no state to
		// serve; surface it loudly.
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}
