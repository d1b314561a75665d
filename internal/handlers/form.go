package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/randosoru/apiserver/internal/services"
	"github.com/randosoru/apiserver/internal/storage"
)

// Uploaded boss images are capped at 2 MiB.
const maxBossImageSize = 2 << 20

// FormHandler exposes form reads, modification, record listings and the
// record submit endpoint.
type FormHandler struct {
	forms   *services.FormService
	records *services.RecordService
	images  *storage.ImageStore
}

// NewFormHandler constructs a FormHandler. images may be nil when no
// object storage backend is configured; the upload endpoint then
// reports 503.
func NewFormHandler(forms *services.FormService, records *services.RecordService, images *storage.ImageStore) *FormHandler {
	return &FormHandler{forms: forms, records: records, images: images}
}

// Router registers the form routes. Reads are public; writes require
// the bearer credential.
func (h *FormHandler) Router(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/{formID}", h.GetForm)
	r.Get("/{formID}/week/{week}", h.ListWeek)
	r.Get("/{formID}/week/{week}/boss/{boss}", h.ListWeekBoss)
	r.Get("/{formID}/all", h.ListAll)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/create", h.CreateForm)
		r.Post("/{formID}/modify", h.ModifyForm)
		r.Post("/{formID}/week/{week}/boss/{boss}", h.SubmitRecord)
		r.Post("/{formID}/boss/{boss}/image", h.UploadBossImage)
	})
}

func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.forms.Get(r.Context(), formID)
	if err != nil {
		writeServiceError(w, err, "failed to load form")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CreateForm is kept for old clients but rejects every call. Forms are
// created through the bot facade.
func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusBadRequest, "Deprecated")
}

func (h *FormHandler) ModifyForm(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch services.FormPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	view, err := h.forms.Modify(r.Context(), formID, userID, patch)
	if err != nil {
		writeServiceError(w, err, "failed to modify form")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *FormHandler) ListWeek(w http.ResponseWriter, r *http.Request) {
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	week, err := parseIntParam(r, "week")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := h.records.ListWeek(r.Context(), formID, week)
	if err != nil {
		writeServiceError(w, err, "failed to list records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *FormHandler) ListWeekBoss(w http.ResponseWriter, r *http.Request) {
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	week, err := parseIntParam(r, "week")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	boss, err := parseIntParam(r, "boss")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := h.records.ListWeekBoss(r.Context(), formID, week, boss)
	if err != nil {
		writeServiceError(w, err, "failed to list records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *FormHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	modifiedAt, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	createdAt, err := parseDateQuery(r, "created_at")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := h.records.ListAll(r.Context(), formID, modifiedAt, createdAt)
	if err != nil {
		writeServiceError(w, err, "failed to list records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *FormHandler) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	week, err := parseIntParam(r, "week")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	boss, err := parseIntParam(r, "boss")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in services.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	view, created, err := h.records.Submit(r.Context(), formID, week, boss, userID, in)
	if err != nil {
		writeServiceError(w, err, "failed to submit record")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, view)
}

// UploadBossImage stores a multipart image upload and attaches its
// object key to the boss slot.
func (h *FormHandler) UploadBossImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}
	if _, err := userIDFromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	formID, err := parseFormID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	boss, err := parseIntParam(r, "boss")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Confirm the form exists before writing to object storage.
	if _, err := h.forms.Get(r.Context(), formID); err != nil {
		writeServiceError(w, err, "failed to load form")
		return
	}

	if err := r.ParseMultipartForm(maxBossImageSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	key, err := h.images.SaveBossImage(r.Context(), formID, boss, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	view, err := h.forms.AttachBossImage(r.Context(), formID, boss, key)
	if err != nil {
		writeServiceError(w, err, "failed to attach image")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
