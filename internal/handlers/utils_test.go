package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/randosoru/apiserver/internal/services"
	"github.com/randosoru/apiserver/internal/store"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, err := bearerToken(r)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("header %q: got (%q, %v), want %q", tc.header, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("header %q: expected an error", tc.header)
		}
	}
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query      string
		page       int
		limit      int
		offset     int
		shouldFail bool
	}{
		{"", 1, 100, 0, false},
		{"page=2", 2, 100, 100, false},
		{"page=3&limit=10", 3, 10, 20, false},
		{"limit=500", 1, 100, 0, false},
		{"page=0", 0, 0, 0, true},
		{"page=x", 0, 0, 0, true},
		{"limit=0", 0, 0, 0, true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		page, limit, offset, err := parsePagination(r)
		if tc.shouldFail {
			if err == nil {
				t.Fatalf("query %q: expected an error", tc.query)
			}
			continue
		}
		if err != nil {
			t.Fatalf("query %q: %v", tc.query, err)
		}
		if page != tc.page || limit != tc.limit || offset != tc.offset {
			t.Fatalf("query %q: got (%d, %d, %d), want (%d, %d, %d)",
				tc.query, page, limit, offset, tc.page, tc.limit, tc.offset)
		}
	}
}

func TestParseDateQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?date=2026-08-15", nil)
	got, err := parseDateQuery(r, "date")
	if err != nil {
		t.Fatalf("day form failed: %v", err)
	}
	want := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	r = httptest.NewRequest(http.MethodGet, "/?date=2026-08-15T06:30:00Z", nil)
	got, err = parseDateQuery(r, "date")
	if err != nil || got == nil || got.Hour() != 6 {
		t.Fatalf("timestamp form failed: %v %v", got, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if got, err := parseDateQuery(r, "date"); err != nil || got != nil {
		t.Fatalf("absent param should be nil, got %v %v", got, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/?date=yesterday", nil)
	if _, err := parseDateQuery(r, "date"); err == nil {
		t.Fatal("expected an error for malformed date")
	}
}

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{services.ErrFormLocked, http.StatusForbidden},
		{services.ErrBanned, http.StatusForbidden},
		{services.ErrPrivacyBlocked, http.StatusForbidden},
		{services.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: week 0 out of range", services.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeServiceError(w, tc.err, "fallback")
		if w.Code != tc.status {
			t.Fatalf("error %v: got status %d, want %d", tc.err, w.Code, tc.status)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("error %v: content type %q", tc.err, ct)
		}
	}
}
