package burn

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestReadObservations(t *testing.T) {
	input := `{"time":"2025-01-10T18:00:00Z","temperature":410.5}
not json
{"temperature":300}
{"time":"2025-01-10T18:05:00Z","temperature":420}
`

	obs, err := ReadObservations(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	if len(obs) != 2 {
		t.Fatalf("len = %d, want 2", len(obs))
	}

	if obs[0].Temperature != 410.5 || obs[1].Temperature != 420 {
		t.Errorf("obs = %+v", obs)
	}
}

func TestWriteObservations(t *testing.T) {
	in := series(5, func(i int) float64 { return float64(100 * i) })

	var buf bytes.Buffer
	if err := WriteObservations(&buf, in); err != nil {
		t.Fatal(err)
	}

	out, err := ReadObservations(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}

	for i := range in {
		if !out[i].Time.Equal(in[i].Time) || out[i].Temperature != in[i].Temperature {
			t.Errorf("out[%d] = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestWindow(t *testing.T) {
	obs := series(12, constant(400))
	from := obs[2].Time
	to := obs[2].Time.Add(time.Hour / 2)

	got := Window(obs, from, to)
	if len(got) != 6 {
		t.Errorf("len = %d, want 6", len(got))
	}

	if len(Latest(obs, 3)) != 3 || len(Latest(obs, 30)) != 12 {
		t.Error("Latest() returned the wrong length")
	}
}
