package burn

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Observation is a single temperature reading in °F. Observations arrive at
// the nominal StepInterval cadence.
type Observation struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
}

// Temperatures extracts the scalar temperatures from obs.
func Temperatures(obs []Observation) []float64 {
	t := make([]float64, len(obs))
	for i := range obs {
		t[i] = obs[i].Temperature
	}

	return t
}

// Latest returns the last n observations of obs, or all of them if there are
// fewer than n.
func Latest(obs []Observation, n int) []Observation {
	if len(obs) <= n {
		return obs
	}

	return obs[len(obs)-n:]
}

// ReadObservations reads newline delimited JSON observations from r. Lines
// that do not decode are skipped, the same way a monitor log with the odd
// truncated line is still usable.
func ReadObservations(r io.Reader) ([]Observation, error) {
	var obs []Observation

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var o Observation

		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			continue
		}

		if o.Time.IsZero() {
			continue
		}

		obs = append(obs, o)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read observations: %w", err)
	}

	return obs, nil
}

// WriteObservations writes obs to w as newline delimited JSON.
func WriteObservations(w io.Writer, obs []Observation) error {
	enc := json.NewEncoder(w)

	for i := range obs {
		if err := enc.Encode(obs[i]); err != nil {
			return err
		}
	}

	return nil
}

// Window returns the observations of obs with from <= Time < to.
func Window(obs []Observation, from, to time.Time) []Observation {
	var out []Observation

	for i := range obs {
		if obs[i].Time.Before(from) || !obs[i].Time.Before(to) {
			continue
		}

		out = append(out, obs[i])
	}

	return out
}
