package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vida-vod/internal/model"

	"github.com/elastic/go-elasticsearch/v8"
)

// newTestIndex 用 httptest 模拟 ES，go-elasticsearch v8 要求响应带产品头
func newTestIndex(t *testing.T, handler http.HandlerFunc) *VideoIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatal(err)
	}
	return NewVideoIndex(client, "videos-test")
}

func TestIndexVideo(t *testing.T) {
	var gotPath string
	var gotDoc VideoDoc
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	v := &model.Video{
		ID:        "v1",
		OwnerID:   "u1",
		Title:     "clip",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Owner:     &model.User{ID: "u1", Name: "alice"},
	}
	if err := x.IndexVideo(context.Background(), v); err != nil {
		t.Fatalf("IndexVideo failed: %v", err)
	}
	if gotPath != "/videos-test/_doc/v1" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotDoc.Title != "clip" || gotDoc.OwnerName != "alice" || gotDoc.CreatedAt != "2024-01-02T03:04:05Z" {
		t.Errorf("Unexpected doc %+v", gotDoc)
	}
}

func TestDeleteVideoMissingIsOK(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})
	if err := x.DeleteVideo(context.Background(), "gone"); err != nil {
		t.Errorf("Expected missing document to be ignored, got %v", err)
	}
}

func TestSearchIDs(t *testing.T) {
	var query map[string]interface{}
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/_search") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &query)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"b"},{"_id":"a"}]}}`))
	})

	ids, err := x.SearchIDs(context.Background(), "  cats ", 5)
	if err != nil {
		t.Fatalf("SearchIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("Expected [b a], got %v", ids)
	}
	if query["size"] != float64(5) {
		t.Errorf("Expected size 5, got %v", query["size"])
	}
}

func TestSearchIDsError(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})
	if _, err := x.SearchIDs(context.Background(), "q", 5); err == nil {
		t.Error("Expected error response to surface")
	}
}

func TestNormalizeHosts(t *testing.T) {
	got := normalizeHosts([]string{" localhost:9200 ", "", "https://es:9200"})
	if len(got) != 2 || got[0] != "http://localhost:9200" || got[1] != "https://es:9200" {
		t.Errorf("Unexpected hosts %v", got)
	}
}
