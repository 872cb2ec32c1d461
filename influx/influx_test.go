package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"endobit.io/burn"
)

// Readings are returned out of order to check sorting.
const queryResponse = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string,string
#group,false,false,true,true,false,false,true,true,true
#default,mean,,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement,location
,,0,2025-01-10T12:00:00Z,2025-01-11T12:00:00Z,2025-01-10T18:05:00Z,421.26,temperature,temperature_measurement,catalyst
,,0,2025-01-10T12:00:00Z,2025-01-11T12:00:00Z,2025-01-10T18:00:00Z,410.54,temperature,temperature_measurement,catalyst
,,0,2025-01-10T12:00:00Z,2025-01-11T12:00:00Z,2025-01-10T18:10:00Z,433,temperature,temperature_measurement,catalyst

`

func TestHistory(t *testing.T) {
	var query string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/query" {
			t.Errorf("path = %q", r.URL.Path)
		}

		if got := r.URL.Query().Get("org"); got != "home" {
			t.Errorf("org = %q", got)
		}

		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("authorization = %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		query = string(body)

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(queryResponse))
	}))
	defer srv.Close()

	s := New(Config{URL: srv.URL, Token: "secret", Org: "home"})
	defer s.Close()

	obs, err := s.History(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{410.5, 421.3, 433}
	if len(obs) != len(want) {
		t.Fatalf("len = %d, want %d", len(obs), len(want))
	}

	for i := range want {
		if obs[i].Temperature != want[i] {
			t.Errorf("obs[%d].Temperature = %v, want %v", i, obs[i].Temperature, want[i])
		}

		if i > 0 && !obs[i].Time.After(obs[i-1].Time) {
			t.Errorf("obs not sorted at %d", i)
		}
	}

	for _, frag := range []string{"temperature_bucket", "aggregateWindow(every: 5m, fn: mean, createEmpty: false)", "catalyst"} {
		if !strings.Contains(query, frag) {
			t.Errorf("query missing %q: %s", frag, query)
		}
	}

	cur, ok, err := s.Current(context.Background())
	if err != nil || !ok || cur.Temperature != 433 {
		t.Errorf("Current() = %+v, %v, %v", cur, ok, err)
	}
}

func TestHistoryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"unauthorized access"}`))
	}))
	defer srv.Close()

	s := New(Config{URL: srv.URL, Org: "home"})
	defer s.Close()

	if _, err := s.History(context.Background(), time.Hour); err == nil {
		t.Error("History() succeeded against an unauthorized server")
	}
}

func TestRecord(t *testing.T) {
	var body string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			t.Errorf("path = %q", r.URL.Path)
		}

		if got := r.URL.Query().Get("bucket"); got != "stove" {
			t.Errorf("bucket = %q", got)
		}

		b, _ := io.ReadAll(r.Body)
		body = string(b)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := New(Config{URL: srv.URL, Org: "home", Bucket: "stove"})
	defer s.Close()

	at := time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)
	if err := s.Record(context.Background(), burn.Observation{Time: at, Temperature: 412.5}); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(body, "temperature_measurement,location=catalyst temperature=412.5 ") {
		t.Errorf("line protocol = %q", body)
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != (Stats{}) {
		t.Errorf("Summarize(nil) = %+v", got)
	}

	obs := []burn.Observation{{Temperature: 300}, {Temperature: 500.04}, {Temperature: 400}}

	want := Stats{Current: 400, Peak: 500, Average: 400, Count: 3}
	if got := Summarize(obs); got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}
