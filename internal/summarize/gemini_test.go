package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewGeminiClient("test-key").WithHTTPClient(server.Client())
	client.baseURL = server.URL
	return client
}

func TestSummarizeReturnsFirstCandidateText(t *testing.T) {
	var gotBody struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "A short summary."}},
				}},
			},
		})
	})

	got, err := client.Summarize(context.Background(), "long page text")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "A short summary." {
		t.Fatalf("summary = %q", got)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) != 1 {
		t.Fatalf("request body = %#v", gotBody)
	}
	prompt := gotBody.Contents[0].Parts[0].Text
	if !strings.HasPrefix(prompt, "Summarize this text: ") || !strings.Contains(prompt, "long page text") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestSummarizeEmptyCandidates(t *testing.T) {
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	})

	_, err := client.Summarize(context.Background(), "text")
	if !errors.Is(err, ErrNoSummary) {
		t.Fatalf("err = %v, want ErrNoSummary", err)
	}
}

func TestSummarizeErrorStatus(t *testing.T) {
	client := geminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	})

	_, err := client.Summarize(context.Background(), "text")
	if err == nil {
		t.Fatal("summarize succeeded on error status")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("err = %v, want the server message included", err)
	}
}

func TestSummarizeMissingKey(t *testing.T) {
	client := NewGeminiClient("")
	if _, err := client.Summarize(context.Background(), "text"); err == nil {
		t.Fatal("summarize succeeded without an api key")
	}
}
