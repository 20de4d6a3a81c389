package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const chartPayload = `{
	"chart": {
		"result": [{
			"timestamp": [1717372800, 1717459200, 1717545600],
			"indicators": {
				"quote": [{
					"open":   [100.0, null, 102.0],
					"high":   [101.0, null, 103.5],
					"low":    [99.0,  null, 101.0],
					"close":  [100.5, null, 103.0],
					"volume": [5000,  null, 7000]
				}]
			}
		}],
		"error": null
	}
}`

func TestGetDailyHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/GC=F" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, chartPayload)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil, 0)

	bars, err := client.GetDailyHistory(context.Background(), "GC=F", 90)
	if err != nil {
		t.Fatalf("GetDailyHistory failed: %v", err)
	}

	// The middle entry has null OHLC and must be skipped
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if bars[0].Close != 100.5 || bars[1].Close != 103.0 {
		t.Errorf("closes = [%v, %v], want [100.5, 103.0]", bars[0].Close, bars[1].Close)
	}
	if bars[1].Volume != 7000 {
		t.Errorf("volume = %v, want 7000", bars[1].Volume)
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Error("bars must be ordered oldest first")
	}
}

func TestGetDailyHistoryAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil, 0)

	if _, err := client.GetDailyHistory(context.Background(), "BOGUS", 90); err == nil {
		t.Fatal("expected an error for a chart API error payload")
	}
}

func TestGetDailyHistoryHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil, 0)

	if _, err := client.GetDailyHistory(context.Background(), "GC=F", 90); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
