package tei

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPredictMapsScoresToInputOrder(t *testing.T) {
	var captured rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		// Sorted by score, indexes out of input order.
		fmt.Fprint(w, `[{"index":2,"score":3.1},{"index":0,"score":-1.2},{"index":1,"score":-4.0}]`)
	}))
	defer srv.Close()

	client := New(srv.URL)
	scores, err := client.Predict(context.Background(), "sanksi pidana", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := []float64{-1.2, -4.0, 3.1}
	if len(scores) != len(want) {
		t.Fatalf("scores = %v, want %v", scores, want)
	}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
	if captured.Query != "sanksi pidana" {
		t.Fatalf("query = %q", captured.Query)
	}
	if len(captured.Texts) != 3 {
		t.Fatalf("texts = %v", captured.Texts)
	}
}

func TestPredictRejectsOutOfRangeIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"index":5,"score":1.0}]`)
	}))
	defer srv.Close()

	client := New(srv.URL)
	if _, err := client.Predict(context.Background(), "q", []string{"only"}); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestPredictReportsErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Predict(context.Background(), "q", []string{"t"})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("error should carry response body, got %v", err)
	}
}

func TestPredictSkipsRequestForEmptyInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected for empty input")
	}))
	defer srv.Close()

	client := New(srv.URL)
	scores, err := client.Predict(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if scores != nil {
		t.Fatalf("scores = %v, want nil", scores)
	}
}
