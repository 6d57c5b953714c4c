package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	r := New("satellited")
	r.BankUtilization.WithLabelValues("0").Set(0.75)
	r.PaquetConcurrency.Set(3)
	r.QueueDepth.WithLabelValues("revised_sessions").Set(12)
	r.APNsRetriesTotal.WithLabelValues("timeout").Inc()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}

	for _, want := range []string{
		"satellite_mmps_bank_utilization_ratio",
		"satellite_task_active_paquets",
		"satellite_queue_depth",
		"satellite_messenger_apns_retries_total",
	} {
		if !contains(string(body), want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestRegistrySatisfiesOwnerMetricsInterfaces(t *testing.T) {
	r := New("satellited")

	r.IncActivePaquets()
	r.IncActivePaquets()
	r.DecActivePaquets()
	if got := testutil.ToFloat64(r.PaquetConcurrency); got != 1 {
		t.Errorf("expected active paquets 1, got %v", got)
	}

	r.SetQueueDepth("messenger", 7)
	if got := testutil.ToFloat64(r.QueueDepth.WithLabelValues("messenger")); got != 7 {
		t.Errorf("expected messenger queue depth 7, got %v", got)
	}

	r.IncAPNsRetry("busy")
	r.IncAPNsRetry("busy")
	if got := testutil.ToFloat64(r.APNsRetriesTotal.WithLabelValues("busy")); got != 2 {
		t.Errorf("expected 2 busy retries, got %v", got)
	}

	r.SetBankUtilization(0, 0.5)
	if got := testutil.ToFloat64(r.BankUtilization.WithLabelValues("0")); got != 0.5 {
		t.Errorf("expected bank 0 utilization 0.5, got %v", got)
	}
}

func TestHealthHandlerReportsUptime(t *testing.T) {
	r := New("broadcasterd")

	srv := httptest.NewServer(http.HandlerFunc(r.healthHandler))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Status string `json:"status"`
		Data   struct {
			Service string `json:"service"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if decoded.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", decoded.Status)
	}
	if decoded.Data.Service != "broadcasterd" {
		t.Errorf("expected service broadcasterd, got %q", decoded.Data.Service)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	r := New("satellited")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after context cancel")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
