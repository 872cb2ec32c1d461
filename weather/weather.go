// Package weather reads the current outdoor temperature from the Open-Meteo
// forecast API. Readings are cached per location for a short time and
// upstream requests are rate limited.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"endobit.io/app/log"
)

// DefaultTTL is how long a reading is served from cache.
const DefaultTTL = 10 * time.Minute

const defaultBaseURL = "https://api.open-meteo.com"

// Reading is the current weather at a location. Temperature is in °F and
// WindSpeed in km/h.
type Reading struct {
	Temperature float64   `json:"temperature"`
	WindSpeed   float64   `json:"wind_speed"`
	Timestamp   time.Time `json:"timestamp"` // when the reading was fetched
	Cached      bool      `json:"cached"`
}

// Client fetches current weather for a fixed location.
type Client struct {
	logger    *slog.Logger
	http      *http.Client
	baseURL   string
	latitude  float64
	longitude float64
	ttl       time.Duration
	cache     *expirable.LRU[string, Reading]
	limiter   *rate.Limiter
}

// WithLogger is an option setting function for New. It sets the logger used
// by the client.
func WithLogger(logger *slog.Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBaseURL is an option setting function for New. It overrides the
// Open-Meteo API host.
func WithBaseURL(base string) func(*Client) {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithTTL is an option setting function for New. It sets how long readings
// are cached.
func WithTTL(ttl time.Duration) func(*Client) {
	return func(c *Client) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithHTTPClient is an option setting function for New.
func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) {
		c.http = hc
	}
}

// New returns a Client for the given coordinates.
func New(latitude, longitude float64, opts ...func(*Client)) *Client {
	c := Client{
		logger:    slog.New(slog.DiscardHandler),
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   defaultBaseURL,
		latitude:  latitude,
		longitude: longitude,
		ttl:       DefaultTTL,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 2),
	}

	for _, o := range opts {
		o(&c)
	}

	c.cache = expirable.NewLRU[string, Reading](16, nil, c.ttl)

	return &c
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
	} `json:"current_weather"`
}

// Current returns the outdoor temperature, from cache when a reading younger
// than the TTL exists.
func (c *Client) Current(ctx context.Context) (Reading, error) {
	key := c.key()

	if r, ok := c.cache.Get(key); ok {
		r.Cached = true

		return r, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Reading{}, err
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(c.latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(c.longitude, 'f', -1, 64))
	query.Set("current_weather", "true")
	query.Set("temperature_unit", "fahrenheit")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+query.Encode(), http.NoBody)
	if err != nil {
		return Reading{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("cannot fetch weather: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("weather API error %d", resp.StatusCode)
	}

	var data forecastResponse

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Reading{}, fmt.Errorf("cannot decode weather: %w", err)
	}

	r := Reading{
		Temperature: math.Round(data.CurrentWeather.Temperature*10) / 10,
		WindSpeed:   data.CurrentWeather.WindSpeed,
		Timestamp:   time.Now(),
	}

	c.cache.Add(key, r)
	c.logger.Debug("weather",
		log.Format("%.1f°F", "outdoor", r.Temperature),
		log.Format("%.1f", "wind", r.WindSpeed))

	return r, nil
}

// Cached returns the cached reading, if it is still fresh, without making a
// request.
func (c *Client) Cached() (Reading, bool) {
	r, ok := c.cache.Get(c.key())
	r.Cached = ok

	return r, ok
}

// Clear drops the cached reading so the next Current call refreshes.
func (c *Client) Clear() {
	c.cache.Purge()
}

func (c *Client) key() string {
	return fmt.Sprintf("%.4f,%.4f", c.latitude, c.longitude)
}

// Age formats how long ago t was in coarse human units.
func Age(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	minutes := int(time.Since(t).Minutes())

	switch {
	case minutes < 1:
		return "just now"
	case minutes == 1:
		return "1 minute ago"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case minutes < 120:
		return "1 hour ago"
	default:
		return fmt.Sprintf("%d hours ago", minutes/60)
	}
}
