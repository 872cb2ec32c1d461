package thermo

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"endobit.io/burn"
)

var t0 = time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)

func TestDecode(t *testing.T) {
	tests := []struct {
		payload string
		want    burn.Observation
		err     bool
	}{
		{`{"temperature": 412.5, "time": "2025-01-10T18:01:00Z"}`, burn.Observation{Time: t0.Add(time.Minute), Temperature: 412.5}, false},
		{`{"temperature": 400}`, burn.Observation{Time: t0, Temperature: 400}, false},
		{" 388.25\n", burn.Observation{Time: t0, Temperature: 388.25}, false},
		{`{"time": "2025-01-10T18:01:00Z"}`, burn.Observation{}, true},
		{`{"temperature": "hot"}`, burn.Observation{}, true},
		{"nan-ish", burn.Observation{}, true},
		{"NaN", burn.Observation{}, true},
		{"+Inf", burn.Observation{}, true},
		{"-inf", burn.Observation{}, true},
	}

	for _, tt := range tests {
		got, err := Decode([]byte(tt.payload), t0)
		if (err != nil) != tt.err {
			t.Errorf("Decode(%q) error = %v, want error %v", tt.payload, err, tt.err)

			continue
		}

		if !got.Time.Equal(tt.want.Time) || got.Temperature != tt.want.Temperature {
			t.Errorf("Decode(%q) = %+v, want %+v", tt.payload, got, tt.want)
		}
	}
}

func TestResampler(t *testing.T) {
	r := Resampler{Interval: burn.StepInterval}

	add := func(offset time.Duration, temp float64) (burn.Observation, bool) {
		return r.Add(burn.Observation{Time: t0.Add(offset), Temperature: temp})
	}

	if _, ok := add(30*time.Second, 400); ok {
		t.Fatal("first reading emitted")
	}

	if _, ok := add(3*time.Minute, 420); ok {
		t.Fatal("reading in the same bucket emitted")
	}

	out, ok := add(6*time.Minute, 500)
	if !ok {
		t.Fatal("new bucket did not emit")
	}

	if !out.Time.Equal(t0) || out.Temperature != 410 {
		t.Errorf("emitted %+v, want 410 at %v", out, t0)
	}

	if _, ok := add(time.Minute, 100); ok {
		t.Error("late reading emitted")
	}

	out, ok = r.Flush()
	if !ok || out.Temperature != 500 || !out.Time.Equal(t0.Add(burn.StepInterval)) {
		t.Errorf("Flush() = %+v, %v", out, ok)
	}

	if _, ok := r.Flush(); ok {
		t.Error("second Flush() reported a bucket")
	}
}

func TestFeedHandle(t *testing.T) {
	now := t0
	f := NewFeed(nil, WithTopic("test"))
	f.now = func() time.Time { return now }

	var got []burn.Observation

	for i, payload := range []string{"300", "bad", "310", "320"} {
		now = t0.Add(time.Duration(i) * 2 * time.Minute)

		if o, ok := f.handle([]byte(payload)); ok {
			got = append(got, o)
		}
	}

	if len(got) != 1 || got[0].Temperature != 305 {
		t.Errorf("observations = %+v, want one at 305", got)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	mqtt.ERROR.Println("[client]", "Connect comms goroutine - error triggered")
	mqtt.DEBUG.Println("[net]", "hidden")

	out := buf.String()

	if !strings.Contains(out, "component=client") || !strings.Contains(out, "level=ERROR") {
		t.Errorf("log output = %q", out)
	}

	if strings.Contains(out, "hidden") {
		t.Errorf("debug output logged at warn level: %q", out)
	}
}
