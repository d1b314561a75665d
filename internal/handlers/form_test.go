package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/services"
	"github.com/randosoru/apiserver/internal/store"
	"github.com/randosoru/apiserver/types"
)

const testFormID = "0123456789abcdef0123456789abcdef"

type memFormRepo struct {
	forms map[string]types.Form
}

func (m *memFormRepo) Get(ctx context.Context, id string) (types.Form, error) {
	form, ok := m.forms[id]
	if !ok {
		return types.Form{}, store.ErrNotFound
	}
	return form, nil
}

func (m *memFormRepo) Create(ctx context.Context, form types.Form) (types.Form, error) {
	m.forms[form.ID] = form
	return form, nil
}

func (m *memFormRepo) Update(ctx context.Context, form types.Form) (types.Form, error) {
	m.forms[form.ID] = form
	return form, nil
}

func (m *memFormRepo) ListBossSlots(ctx context.Context, formID string) ([]types.BossSlot, error) {
	return nil, nil
}

func (m *memFormRepo) UpsertBossSlot(ctx context.Context, slot types.BossSlot) error { return nil }

func (m *memFormRepo) SetBossImage(ctx context.Context, formID string, boss int, image string) error {
	return nil
}

type memRecordRepo struct {
	nextID  int
	records map[int]types.Record
}

func (m *memRecordRepo) Create(ctx context.Context, record types.Record) (types.Record, error) {
	if m.nextID == 0 {
		m.nextID = 1
	}
	record.ID = m.nextID
	m.nextID++
	record.CreatedAt = time.Now()
	record.LastModified = record.CreatedAt
	m.records[record.ID] = record
	return record, nil
}

func (m *memRecordRepo) Update(ctx context.Context, record types.Record) (types.Record, error) {
	m.records[record.ID] = record
	return record, nil
}

func (m *memRecordRepo) GetOwned(ctx context.Context, formID string, week, id, userID int) (types.Record, error) {
	record, ok := m.records[id]
	if !ok || record.FormID != formID || record.Week != week || record.UserID != userID {
		return types.Record{}, store.ErrNotFound
	}
	return record, nil
}

func (m *memRecordRepo) ListByWeek(ctx context.Context, formID string, week int) ([]store.RecordWithUser, error) {
	return nil, nil
}

func (m *memRecordRepo) ListByWeekBoss(ctx context.Context, formID string, week, boss int) ([]store.RecordWithUser, error) {
	return nil, nil
}

func (m *memRecordRepo) ListAll(ctx context.Context, formID string, modifiedAt, createdAt *time.Time) ([]store.RecordWithUser, error) {
	return nil, nil
}

func (m *memRecordRepo) ListByUser(ctx context.Context, userID int, formID string, modifiedAt, createdAt *time.Time, limit, offset int) ([]store.RecordWithUser, int, error) {
	return nil, 0, nil
}

type memUsers struct{}

func (memUsers) GetByID(ctx context.Context, id int) (types.User, error) {
	return types.User{ID: id, Name: "tester"}, nil
}

func newFormTestServer(t *testing.T) (*httptest.Server, *identity.Tokens, *identity.Codec, *memFormRepo) {
	t.Helper()
	codec, err := identity.NewCodec("test-salt")
	if err != nil {
		t.Fatalf("failed to build codec: %v", err)
	}
	tokens := identity.NewTokens("test-secret")

	formRepo := &memFormRepo{forms: map[string]types.Form{
		testFormID: {ID: testFormID, OwnerID: 1, Month: 202608, Status: types.FormReadWrite},
	}}
	recordRepo := &memRecordRepo{records: make(map[int]types.Record)}

	formService := services.NewFormService(formRepo, codec, nil, false)
	recordService := services.NewRecordService(recordRepo, formRepo, memUsers{}, codec, nil)
	handler := NewFormHandler(formService, recordService, nil)

	router := chi.NewRouter()
	router.Route("/forms", func(r chi.Router) {
		handler.Router(r, RequireAuth(tokens, codec))
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, tokens, codec, formRepo
}

func authHeader(t *testing.T, tokens *identity.Tokens, codec *identity.Codec, userID int) string {
	t.Helper()
	credential, err := tokens.Issue(codec.Encode(userID))
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return "Bearer " + credential
}

func TestGetFormHTTP(t *testing.T) {
	server, _, _, _ := newFormTestServer(t)

	resp, err := http.Get(server.URL + "/forms/" + testFormID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}

	var view types.ExternalForm
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("malformed body: %v", err)
	}
	if view.ID != testFormID {
		t.Fatalf("unexpected form id %q", view.ID)
	}
	if len(view.Bosses) != types.MaxBossSlots {
		t.Fatalf("expected %d roster slots, got %d", types.MaxBossSlots, len(view.Bosses))
	}

	resp, err = http.Get(server.URL + "/forms/" + strings.Repeat("f", 32))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown form: got %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/forms/not-a-form-id")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed id: got %d, want 400", resp.StatusCode)
	}
}

func TestCreateFormDeprecatedHTTP(t *testing.T) {
	server, tokens, codec, _ := newFormTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/forms/create", strings.NewReader(`{}`))
	req.Header.Set("Authorization", authHeader(t, tokens, codec, 1))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", resp.StatusCode)
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("malformed body: %v", err)
	}
	if body.Error != "Deprecated" {
		t.Fatalf("unexpected error message %q", body.Error)
	}
}

func TestSubmitRecordHTTP(t *testing.T) {
	server, tokens, codec, formRepo := newFormTestServer(t)
	target := server.URL + "/forms/" + testFormID + "/week/3/boss/2"
	payload := `{"status":1,"damage":1000000}`

	// Unauthenticated.
	resp, err := http.Post(target, "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no credential: got %d, want 401", resp.StatusCode)
	}

	// Authenticated create.
	req, _ := http.NewRequest(http.MethodPost, target, strings.NewReader(payload))
	req.Header.Set("Authorization", authHeader(t, tokens, codec, 1))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var view types.ExternalRecord
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("malformed body: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: got %d, want 201", resp.StatusCode)
	}
	if view.Week != 3 || view.Boss != 2 || view.User.Name != "tester" {
		t.Fatalf("unexpected view: %+v", view)
	}

	// Update of the same record.
	update := `{"id":` + strconv.Itoa(view.ID) + `,"status":23,"damage":2000000}`
	req, _ = http.NewRequest(http.MethodPost, target, strings.NewReader(update))
	req.Header.Set("Authorization", authHeader(t, tokens, codec, 1))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: got %d, want 200", resp.StatusCode)
	}

	// Locked form.
	form := formRepo.forms[testFormID]
	form.Status = types.FormReadOnly
	formRepo.forms[testFormID] = form

	req, _ = http.NewRequest(http.MethodPost, target, strings.NewReader(payload))
	req.Header.Set("Authorization", authHeader(t, tokens, codec, 1))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("locked form: got %d, want 403", resp.StatusCode)
	}
}

func TestUploadBossImageUnconfiguredHTTP(t *testing.T) {
	server, tokens, codec, _ := newFormTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/forms/"+testFormID+"/boss/1/image", nil)
	req.Header.Set("Authorization", authHeader(t, tokens, codec, 1))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", resp.StatusCode)
	}
}
