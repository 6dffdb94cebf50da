package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaClientStream(t *testing.T) {
	var gotReq struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
		Options  struct {
			Temperature float64 `json:"temperature"`
		} `json:"options"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotReq)

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, chunk := range []string{"Rest ", "and ", "fluids."} {
			fmt.Fprintf(w, `{"model":"llama3.1:latest","message":{"role":"assistant","content":%q},"done":false}`+"\n", chunk)
		}
		fmt.Fprint(w, `{"model":"llama3.1:latest","message":{"role":"assistant","content":""},"done":true}`+"\n")
	}))
	defer srv.Close()

	c, err := NewOllamaClient(srv.URL, "sys", srv.Client())
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}

	rec := &recorder{}
	c.Stream(context.Background(), Request{
		Messages:    singleUserMessage("I have a cold"),
		Model:       "llama3.1:latest",
		Temperature: 0.7,
	}, rec.callbacks())

	want := []string{"delta:Rest ", "delta:and ", "delta:fluids.", "complete"}
	if got := rec.get(); !equalEvents(got, want) {
		t.Errorf("events: got %q, want %q", got, want)
	}

	if gotReq.Model != "llama3.1:latest" {
		t.Errorf("model: got %q", gotReq.Model)
	}
	if gotReq.Options.Temperature != 0.7 {
		t.Errorf("temperature: got %v", gotReq.Options.Temperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages: got %+v", gotReq.Messages)
	}
}

func TestOllamaClientListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama3.1:latest","size":4661224676},{"name":"mistral:latest","size":4113301824}]}`)
	}))
	defer srv.Close()

	c, err := NewOllamaClient(srv.URL, "", srv.Client())
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "llama3.1:latest" || models[0].Size != 4661224676 || models[0].Provider != "ollama" {
		t.Errorf("model 0: got %+v", models[0])
	}
}

func TestOllamaClientPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	}))
	c, err := NewOllamaClient(srv.URL, "", srv.Client())
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	srv.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected an error once the server is gone")
	}
}
