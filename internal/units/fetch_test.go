package units

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchUnit_GET_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"name":"a"},{"name":"b"}],"total":2}`))
	}))
	defer server.Close()

	u := NewFetchUnit(nil, 0)
	res, err := u.Run(context.Background(), map[string]any{
		"url":    server.URL,
		"select": "items.#.name",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := res.Output.(map[string]any)
	if out["status_code"] != 200 {
		t.Errorf("expected 200, got %v", out["status_code"])
	}

	body, ok := out["body"].(map[string]any)
	if !ok || body["total"] != 2.0 {
		t.Errorf("unexpected body: %v", out["body"])
	}

	selected, ok := out["selected"].([]any)
	if !ok || len(selected) != 2 || selected[0] != "a" {
		t.Errorf("unexpected selection: %v", out["selected"])
	}
}

func TestFetchUnit_HTMLTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><TITLE> Tom &amp; Jerry </TITLE></head><body></body></html>`))
	}))
	defer server.Close()

	res, err := NewFetchUnit(nil, 0).Run(context.Background(), map[string]any{"url": server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if title := res.Output.(map[string]any)["title"]; title != "Tom & Jerry" {
		t.Errorf("unexpected title: %q", title)
	}
}

func TestFetchUnit_POST_JSON(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %s", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Token") != "secret" {
			t.Errorf("expected X-Token header")
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	_, err := NewFetchUnit(nil, 0).Run(context.Background(), map[string]any{
		"method":  "post",
		"url":     server.URL,
		"headers": map[string]any{"X-Token": "secret"},
		"body":    map[string]any{"name": "test"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received["name"] != "test" {
		t.Errorf("unexpected body: %v", received)
	}
}

func TestFetchUnit_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewFetchUnit(nil, 0).Run(context.Background(), map[string]any{"url": server.URL})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPError 502, got %v", err)
	}

	// С fail_on_status=false ответ возвращается как есть
	res, err := NewFetchUnit(nil, 0).Run(context.Background(), map[string]any{
		"url":            server.URL,
		"fail_on_status": false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output.(map[string]any)["status_code"] != http.StatusBadGateway {
		t.Errorf("unexpected output: %v", res.Output)
	}
}

func TestFetchUnit_InvalidInput(t *testing.T) {
	_, err := NewFetchUnit(nil, 0).Run(context.Background(), map[string]any{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestFetchUnit_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	_, err := NewFetchUnit(nil, 50*time.Millisecond).Run(context.Background(), map[string]any{"url": server.URL})
	if !errors.Is(err, ErrUnitCancelled) {
		t.Errorf("expected ErrUnitCancelled, got %v", err)
	}
}
