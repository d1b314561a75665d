package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/live"
	"github.com/randosoru/apiserver/internal/store"
	"github.com/randosoru/apiserver/types"
)

type fakeFormRepo struct {
	forms map[string]types.Form
	slots map[string][]types.BossSlot

	updated []types.Form
	upserts []types.BossSlot
	images  map[string]string
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{
		forms:  make(map[string]types.Form),
		slots:  make(map[string][]types.BossSlot),
		images: make(map[string]string),
	}
}

func (f *fakeFormRepo) Get(ctx context.Context, id string) (types.Form, error) {
	form, ok := f.forms[id]
	if !ok {
		return types.Form{}, store.ErrNotFound
	}
	return form, nil
}

func (f *fakeFormRepo) Create(ctx context.Context, form types.Form) (types.Form, error) {
	form.CreatedAt = time.Now()
	f.forms[form.ID] = form
	return form, nil
}

func (f *fakeFormRepo) Update(ctx context.Context, form types.Form) (types.Form, error) {
	if _, ok := f.forms[form.ID]; !ok {
		return types.Form{}, store.ErrNotFound
	}
	f.forms[form.ID] = form
	f.updated = append(f.updated, form)
	return form, nil
}

func (f *fakeFormRepo) ListBossSlots(ctx context.Context, formID string) ([]types.BossSlot, error) {
	return f.slots[formID], nil
}

func (f *fakeFormRepo) UpsertBossSlot(ctx context.Context, slot types.BossSlot) error {
	f.upserts = append(f.upserts, slot)
	for i, existing := range f.slots[slot.FormID] {
		if existing.Boss == slot.Boss {
			f.slots[slot.FormID][i] = slot
			return nil
		}
	}
	f.slots[slot.FormID] = append(f.slots[slot.FormID], slot)
	return nil
}

func (f *fakeFormRepo) SetBossImage(ctx context.Context, formID string, boss int, image string) error {
	if _, ok := f.forms[formID]; !ok {
		return store.ErrNotFound
	}
	f.images[formID] = image
	return nil
}

type fakeRecordRepo struct {
	nextID  int
	records map[int]types.Record
	updates int
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{nextID: 1, records: make(map[int]types.Record)}
}

func (f *fakeRecordRepo) Create(ctx context.Context, record types.Record) (types.Record, error) {
	record.ID = f.nextID
	f.nextID++
	now := time.Now()
	record.CreatedAt = now
	record.LastModified = now
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeRecordRepo) Update(ctx context.Context, record types.Record) (types.Record, error) {
	if _, ok := f.records[record.ID]; !ok {
		return types.Record{}, store.ErrNotFound
	}
	record.LastModified = time.Now()
	f.records[record.ID] = record
	f.updates++
	return record, nil
}

func (f *fakeRecordRepo) GetOwned(ctx context.Context, formID string, week, id, userID int) (types.Record, error) {
	record, ok := f.records[id]
	if !ok || record.FormID != formID || record.Week != week || record.UserID != userID {
		return types.Record{}, store.ErrNotFound
	}
	if record.Status == types.StatusDeleted {
		return types.Record{}, store.ErrNotFound
	}
	return record, nil
}

func (f *fakeRecordRepo) ListByWeek(ctx context.Context, formID string, week int) ([]store.RecordWithUser, error) {
	return nil, nil
}

func (f *fakeRecordRepo) ListByWeekBoss(ctx context.Context, formID string, week, boss int) ([]store.RecordWithUser, error) {
	return nil, nil
}

func (f *fakeRecordRepo) ListAll(ctx context.Context, formID string, modifiedAt, createdAt *time.Time) ([]store.RecordWithUser, error) {
	return nil, nil
}

func (f *fakeRecordRepo) ListByUser(ctx context.Context, userID int, formID string, modifiedAt, createdAt *time.Time, limit, offset int) ([]store.RecordWithUser, int, error) {
	return nil, 0, nil
}

type fakeUserGetter struct {
	users map[int]types.User
}

func (f *fakeUserGetter) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

type captureNotifier struct {
	events []capturedEvent
}

type capturedEvent struct {
	FormID string
	Type   string
	Data   any
}

func (n *captureNotifier) Broadcast(formID, eventType string, data any) {
	n.events = append(n.events, capturedEvent{FormID: formID, Type: eventType, Data: data})
}

func testCodec(t *testing.T) *identity.Codec {
	t.Helper()
	codec, err := identity.NewCodec("test-salt")
	if err != nil {
		t.Fatalf("failed to build codec: %v", err)
	}
	return codec
}

const testFormID = "0123456789abcdef0123456789abcdef"

func newRecordFixture(t *testing.T) (*RecordService, *fakeFormRepo, *fakeRecordRepo, *captureNotifier) {
	t.Helper()
	forms := newFakeFormRepo()
	forms.forms[testFormID] = types.Form{ID: testFormID, OwnerID: 1, Month: 202608, Status: types.FormReadWrite}

	records := newFakeRecordRepo()
	users := &fakeUserGetter{users: map[int]types.User{
		1: {ID: 1, Name: "alice"},
		2: {ID: 2, Name: "bob"},
	}}
	notifier := &captureNotifier{}
	svc := NewRecordService(records, forms, users, testCodec(t), notifier)
	return svc, forms, records, notifier
}

func TestSubmitCreatesRecord(t *testing.T) {
	svc, _, records, notifier := newRecordFixture(t)

	view, created, err := svc.Submit(context.Background(), testFormID, 3, 2, 1, SubmitInput{
		Status: types.StatusSignupFull,
		Damage: 1200000,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !created {
		t.Fatal("expected a new record")
	}
	if view.ID == 0 {
		t.Fatal("expected an allocated record id")
	}
	if view.Month != 202608 {
		t.Fatalf("expected month inherited from form, got %d", view.Month)
	}
	if view.User.Name != "alice" {
		t.Fatalf("expected submitter attached, got %q", view.User.Name)
	}
	if got := records.records[view.ID]; got.Week != 3 || got.Boss != 2 {
		t.Fatalf("stored record has wrong slot: week=%d boss=%d", got.Week, got.Boss)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(notifier.events))
	}
	if notifier.events[0].Type != live.EventRecordCreated {
		t.Fatalf("expected %q event, got %q", live.EventRecordCreated, notifier.events[0].Type)
	}
	if notifier.events[0].FormID != testFormID {
		t.Fatalf("broadcast sent to wrong room: %q", notifier.events[0].FormID)
	}
}

func TestSubmitUpdatesOwnRecord(t *testing.T) {
	svc, _, records, notifier := newRecordFixture(t)

	first, _, err := svc.Submit(context.Background(), testFormID, 3, 2, 1, SubmitInput{
		Status: types.StatusSignupFull,
	})
	if err != nil {
		t.Fatalf("initial submit failed: %v", err)
	}

	second, created, err := svc.Submit(context.Background(), testFormID, 3, 2, 1, SubmitInput{
		RecordID: first.ID,
		Status:   types.StatusDoneKill,
		Damage:   4500000,
		Comment:  "done",
	})
	if err != nil {
		t.Fatalf("update submit failed: %v", err)
	}
	if created {
		t.Fatal("expected an update, not a create")
	}
	if second.ID != first.ID {
		t.Fatalf("update changed record identity: %d -> %d", first.ID, second.ID)
	}
	if second.Week != first.Week || second.Boss != first.Boss {
		t.Fatal("update changed the record's slot")
	}
	if got := records.records[first.ID]; got.Status != types.StatusDoneKill || got.Damage != 4500000 {
		t.Fatalf("stored record not updated: status=%d damage=%d", got.Status, got.Damage)
	}

	last := notifier.events[len(notifier.events)-1]
	if last.Type != live.EventRecordUpdated {
		t.Fatalf("expected %q event, got %q", live.EventRecordUpdated, last.Type)
	}
}

func TestSubmitRejectsForeignRecord(t *testing.T) {
	svc, _, records, notifier := newRecordFixture(t)

	first, _, err := svc.Submit(context.Background(), testFormID, 3, 2, 1, SubmitInput{
		Status: types.StatusSignupFull,
		Damage: 100,
	})
	if err != nil {
		t.Fatalf("initial submit failed: %v", err)
	}
	broadcasts := len(notifier.events)

	_, _, err = svc.Submit(context.Background(), testFormID, 3, 2, 2, SubmitInput{
		RecordID: first.ID,
		Status:   types.StatusDoneKill,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign record, got %v", err)
	}
	if got := records.records[first.ID]; got.Status != types.StatusSignupFull || got.Damage != 100 {
		t.Fatal("foreign submit mutated the record")
	}
	if len(notifier.events) != broadcasts {
		t.Fatal("foreign submit triggered a broadcast")
	}
}

func TestSubmitLockedForm(t *testing.T) {
	svc, forms, records, notifier := newRecordFixture(t)

	form := forms.forms[testFormID]
	form.Status = types.FormReadOnly
	forms.forms[testFormID] = form

	_, _, err := svc.Submit(context.Background(), testFormID, 1, 1, 1, SubmitInput{
		Status: types.StatusSignupFull,
	})
	if !errors.Is(err, ErrFormLocked) {
		t.Fatalf("expected ErrFormLocked, got %v", err)
	}
	if len(records.records) != 0 {
		t.Fatal("locked form accepted a record")
	}
	if len(notifier.events) != 0 {
		t.Fatal("locked form triggered a broadcast")
	}
}

func TestSubmitUnknownForm(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)

	_, _, err := svc.Submit(context.Background(), strings.Repeat("f", 32), 1, 1, 1, SubmitInput{
		Status: types.StatusSignupFull,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _, notifier := newRecordFixture(t)

	cases := []struct {
		name string
		week int
		boss int
		in   SubmitInput
	}{
		{"week too low", 0, 1, SubmitInput{Status: types.StatusSignupFull}},
		{"week too high", 100, 1, SubmitInput{Status: types.StatusSignupFull}},
		{"boss too high", 1, 6, SubmitInput{Status: types.StatusSignupFull}},
		{"deleted status", 1, 1, SubmitInput{Status: types.StatusDeleted}},
		{"unknown status", 1, 1, SubmitInput{Status: 7}},
		{"negative damage", 1, 1, SubmitInput{Status: types.StatusSignupFull, Damage: -1}},
		{"damage too high", 1, 1, SubmitInput{Status: types.StatusSignupFull, Damage: types.MaxDamage + 1}},
		{"team too large", 1, 1, SubmitInput{Status: types.StatusSignupFull, Team: make([]types.TeamEntry, types.MaxTeamSize+1)}},
		{"team entry missing unit", 1, 1, SubmitInput{Status: types.StatusSignupFull, Team: []types.TeamEntry{{Star: 3}}}},
		{"team entry star too high", 1, 1, SubmitInput{Status: types.StatusSignupFull, Team: []types.TeamEntry{{UnitID: 105801, Star: 7}}}},
		{"team entry position too long", 1, 1, SubmitInput{Status: types.StatusSignupFull, Team: []types.TeamEntry{{UnitID: 105801, Position: strings.Repeat("p", 21)}}}},
		{"comment too long", 1, 1, SubmitInput{Status: types.StatusSignupFull, Comment: strings.Repeat("x", 101)}},
		{"negative record id", 1, 1, SubmitInput{Status: types.StatusSignupFull, RecordID: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Submit(context.Background(), testFormID, tc.week, tc.boss, 1, tc.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(notifier.events) != 0 {
		t.Fatal("rejected submits triggered broadcasts")
	}
}

func TestListWeekBossValidatesRange(t *testing.T) {
	svc, _, _, _ := newRecordFixture(t)

	if _, err := svc.ListWeek(context.Background(), testFormID, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for week 0, got %v", err)
	}
	if _, err := svc.ListWeekBoss(context.Background(), testFormID, 1, 6); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for boss 6, got %v", err)
	}
}
