package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"baler/internal/testsupport"
)

func TestTestNotifyReportsDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, stdout, "Notifications are disabled")
}

func TestTestNotifySendsMessage(t *testing.T) {
	var requests atomic.Int32
	var body atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body.Store(string(data))
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(server.URL+"/baler-test"))

	stdout, _, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, stdout, "Test notification sent")
	if requests.Load() != 1 {
		t.Fatalf("expected one delivery, got %d", requests.Load())
	}
	if stored, _ := body.Load().(string); stored == "" {
		t.Fatal("expected a request body")
	}
}
