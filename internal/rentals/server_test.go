package rentals

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vwcamper77/rentals-sync/internal/rentals/feed"
	"github.com/vwcamper77/rentals-sync/internal/rentals/model"
)

func newTestRouter(repo Repository, syncer *Syncer) *mux.Router {
	r := mux.NewRouter()
	NewServer(repo, syncer).Register(r)
	return r
}

func doRequest(t *testing.T, router *mux.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServer_DescribeProperty(t *testing.T) {
	prop := propertyWithURL("https://example.com/cal.ics")
	repo := newFakeRepo(prop)
	router := newTestRouter(repo, NewSyncer(repo))

	t.Run("unknown id returns 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/rentals/"+primitive.NewObjectID().Hex())
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("malformed id returns 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/rentals/not-a-hex-id")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("known id returns the property", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/rentals/"+prop.ID.Hex())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Property model.Property `json:"property"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if body.Property.Name != "Seaside Cabin" {
			t.Errorf("unexpected property name %q", body.Property.Name)
		}
	})
}

func TestServer_SyncOne(t *testing.T) {
	t.Run("syncs and returns the refreshed property", func(t *testing.T) {
		srv := feedServer(t, feedFixture)
		prop := propertyWithURL(srv.URL)
		repo := newFakeRepo(prop)
		router := newTestRouter(repo, NewSyncer(repo, WithClock(fixedClock())))

		rec := doRequest(t, router, http.MethodPost, "/api/rentals/"+prop.ID.Hex()+"/sync")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Property model.Property `json:"property"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON response: %v", err)
		}
		if body.Property.ICalSyncStatus != model.SyncStatusOK {
			t.Errorf("expected status ok, got %s", body.Property.ICalSyncStatus)
		}
		if len(body.Property.BlockedRanges) != 1 {
			t.Errorf("expected 1 blocked range, got %d", len(body.Property.BlockedRanges))
		}
	})

	t.Run("missing feed URL returns 400", func(t *testing.T) {
		prop := propertyWithURL("")
		repo := newFakeRepo(prop)
		router := newTestRouter(repo, NewSyncer(repo))

		rec := doRequest(t, router, http.MethodPost, "/api/rentals/"+prop.ID.Hex()+"/sync")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		repo := newFakeRepo()
		router := newTestRouter(repo, NewSyncer(repo))

		rec := doRequest(t, router, http.MethodPost, "/api/rentals/"+primitive.NewObjectID().Hex()+"/sync")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("malformed id returns 404", func(t *testing.T) {
		repo := newFakeRepo()
		router := newTestRouter(repo, NewSyncer(repo))

		rec := doRequest(t, router, http.MethodPost, "/api/rentals/not-a-hex-id/sync")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("unreachable feed returns 502 and persists the error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		prop := propertyWithURL(srv.URL)
		repo := newFakeRepo(prop)
		router := newTestRouter(repo, NewSyncer(repo, WithFetcher(feed.NewFetcher(time.Second, 1))))

		rec := doRequest(t, router, http.MethodPost, "/api/rentals/"+prop.ID.Hex()+"/sync")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
		if prop.ICalSyncStatus != model.SyncStatusError {
			t.Errorf("expected persisted error status, got %s", prop.ICalSyncStatus)
		}
	})
}

func TestServer_SyncAll(t *testing.T) {
	srv := feedServer(t, feedFixture)
	repo := newFakeRepo(propertyWithURL(srv.URL), propertyWithURL(""))
	router := newTestRouter(repo, NewSyncer(repo, WithClock(fixedClock())))

	rec := doRequest(t, router, http.MethodPost, "/api/rentals/sync")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary PassSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	want := PassSummary{Synced: 1, Skipped: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}
