package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
	"unicode/utf8"
)

func serveJSON(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGenerateDraftSendsScopedRequest(t *testing.T) {
	var got generateRequest
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/copilot" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "  Here is your refund.  "}}},
			"metadata": map[string]any{
				"confidence": 0.93,
				"critique":   "fine",
				"category":   "Billing",
				"sentiment":  "Negative",
				"urgency":    "High",
				"rag_sources": []any{
					map[string]any{"document": "refund-policy", "section": "returns", "category": "Billing", "relevance": 1.4},
				},
			},
		})
	})

	client := NewGenerationClient(Options{BaseURL: srv.URL + "/", Timeout: time.Second})
	result, err := client.GenerateDraft(context.Background(), "I want a refund", []string{"refund-policy"})
	if err != nil {
		t.Fatalf("GenerateDraft: %v", err)
	}

	if got.Model != defaultModel || got.Stream {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "I want a refund" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !reflect.DeepEqual(got.SelectedSources, []string{"refund-policy"}) {
		t.Fatalf("selected = %v", got.SelectedSources)
	}

	if result.Text != "Here is your refund." {
		t.Fatalf("text = %q", result.Text)
	}
	if result.Confidence == nil || *result.Confidence != 0.93 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if *result.Category != "Billing" || *result.Sentiment != "Negative" || *result.Urgency != "High" {
		t.Fatalf("classification = %v %v %v", *result.Category, *result.Sentiment, *result.Urgency)
	}
	if len(result.Sources) != 1 || result.Sources[0].Relevance != 1 {
		t.Fatalf("sources = %+v", result.Sources)
	}
}

func TestGenerateDraftOmitsEmptySelection(t *testing.T) {
	var raw map[string]any
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}},
		})
	})

	result, err := NewGenerationClient(Options{BaseURL: srv.URL}).GenerateDraft(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("GenerateDraft: %v", err)
	}
	if _, ok := raw["selected_sources"]; ok {
		t.Fatalf("selected_sources sent for unscoped request: %v", raw)
	}
	if result.Confidence != nil || result.Category != nil || result.Sentiment != nil {
		t.Fatalf("missing metadata should stay nil: %+v", result)
	}
	if result.Sources == nil || len(result.Sources) != 0 {
		t.Fatalf("sources = %#v, want empty slice", result.Sources)
	}
}

func TestGenerateDraftFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr func(error) bool
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   map[string]any{"detail": "model overloaded"},
			wantErr: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.Status == http.StatusInternalServerError
			},
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			body:    map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": "   "}}}},
			wantErr: func(err error) bool { return errors.Is(err, ErrEmptyDraft) },
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    map[string]any{"choices": []any{}},
			wantErr: func(err error) bool { return errors.Is(err, ErrEmptyDraft) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := NewGenerationClient(Options{BaseURL: srv.URL}).GenerateDraft(context.Background(), "q", nil)
			if err == nil || !tt.wantErr(err) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestGenerateDraftHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerationClient(Options{BaseURL: "http://127.0.0.1:1"}).GenerateDraft(ctx, "q", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSuggestSourcesSortsByRelevance(t *testing.T) {
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/suggest-sources" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"suggested_sources": []any{
				map[string]any{"document": "shipping", "relevance": 0.4},
				map[string]any{"document": "refund-policy", "relevance": 0.9},
				map[string]any{"document": "faq", "relevance": 0.4},
			},
		})
	})

	sources, err := NewSuggestionClient(Options{BaseURL: srv.URL}).SuggestSources(context.Background(), "refund")
	if err != nil {
		t.Fatalf("SuggestSources: %v", err)
	}
	var docs []string
	for _, src := range sources {
		docs = append(docs, src.Document)
	}
	if want := []string{"refund-policy", "shipping", "faq"}; !reflect.DeepEqual(docs, want) {
		t.Fatalf("order = %v, want %v", docs, want)
	}
}

func TestSuggestSourcesEmptyQuerySkipsCall(t *testing.T) {
	called := false
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	sources, err := NewSuggestionClient(Options{BaseURL: srv.URL}).SuggestSources(context.Background(), "  ")
	if err != nil || len(sources) != 0 || called {
		t.Fatalf("sources=%v err=%v called=%v", sources, err, called)
	}
}

func TestListSources(t *testing.T) {
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/sources" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sources": []any{
				map[string]any{"id": "1", "document": "refund-policy", "category": "Billing", "sections": []string{"returns"}, "total_chunks": 4},
			},
		})
	})
	sources, err := NewSuggestionClient(Options{BaseURL: srv.URL}).ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	want := []KnowledgeSource{{ID: "1", Document: "refund-policy", Category: "Billing", Sections: []string{"returns"}, TotalChunks: 4}}
	if !reflect.DeepEqual(sources, want) {
		t.Fatalf("sources = %+v", sources)
	}
}

func TestListSourcesReportsUpstreamError(t *testing.T) {
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"sources": []any{}, "error": "index not built"})
	})
	if _, err := NewSuggestionClient(Options{BaseURL: srv.URL}).ListSources(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWebhookPostsJSON(t *testing.T) {
	var got map[string]string
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("method=%s content-type=%s", r.Method, r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	})

	err := NewWebhookClient(srv.URL, time.Second).Post(context.Background(), map[string]string{"kind": "ticket_sent"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got["kind"] != "ticket_sent" {
		t.Fatalf("body = %v", got)
	}
}

func TestWebhookRejectedStatus(t *testing.T) {
	srv := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "down"})
	})

	err := NewWebhookClient(srv.URL, time.Second).Post(context.Background(), struct{}{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want StatusError 503", err)
	}
}

func TestPreviewCutsOnRuneBoundary(t *testing.T) {
	got := preview("  日本語のテキスト  ", 10)
	if got != "日本..." {
		t.Fatalf("preview = %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("preview %q is not valid UTF-8", got)
	}
	if got := preview("plain body", 200); got != "plain body" {
		t.Fatalf("preview = %q", got)
	}
}
