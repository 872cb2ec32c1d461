// Package server exposes a burn.Session over HTTP: training with streamed
// progress, forecasting, analysis and the fuel table.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"endobit.io/burn"
	"endobit.io/burn/weather"
)

// HistorySource supplies recent observations.
type HistorySource interface {
	History(ctx context.Context, lookback time.Duration) ([]burn.Observation, error)
}

// WeatherSource supplies the outdoor temperature.
type WeatherSource interface {
	Current(ctx context.Context) (weather.Reading, error)
}

// Defaults fill forecast parameters a request leaves out.
type Defaults struct {
	Hours      float64
	FillLevel  float64
	Mix        []burn.MixPart
	Confidence float64
	Lookback   time.Duration // history fetched when a request has none
}

// keptRuns is how many finished runs remain queryable.
const keptRuns = 16

// Server routes HTTP requests to a Session.
type Server struct {
	logger   *slog.Logger
	session  *burn.Session
	history  HistorySource
	weather  WeatherSource
	gatherer prometheus.Gatherer
	defaults Defaults

	mu    sync.Mutex
	runs  map[string]*run
	order []string
}

// WithLogger is an option setting function for New.
func WithLogger(logger *slog.Logger) func(*Server) {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHistory is an option setting function for New. Requests without
// observations are served from h.
func WithHistory(h HistorySource) func(*Server) {
	return func(s *Server) {
		s.history = h
	}
}

// WithWeather is an option setting function for New. Forecast requests
// without an outdoor temperature use w.
func WithWeather(w WeatherSource) func(*Server) {
	return func(s *Server) {
		s.weather = w
	}
}

// WithGatherer is an option setting function for New. It enables /metrics.
func WithGatherer(g prometheus.Gatherer) func(*Server) {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithDefaults is an option setting function for New.
func WithDefaults(d Defaults) func(*Server) {
	return func(s *Server) {
		s.defaults = d
	}
}

// New returns a Server for session.
func New(session *burn.Session, opts ...func(*Server)) *Server {
	s := Server{
		logger:  slog.New(slog.DiscardHandler),
		session: session,
		defaults: Defaults{
			Hours:      burn.DefaultHorizonHours,
			FillLevel:  100,
			Mix:        burn.DefaultMix(),
			Confidence: burn.DefaultConfidenceLevel,
			Lookback:   6 * time.Hour,
		},
		runs: make(map[string]*run),
	}

	for _, o := range opts {
		o(&s)
	}

	return &s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	v1 := r.Group("/v1")
	{
		v1.POST("/train", s.startTraining)
		v1.GET("/train/:id", s.trainingStatus)
		v1.GET("/train/:id/events", s.trainingEvents)
		v1.DELETE("/train/:id", s.cancelTraining)
		v1.POST("/forecast", s.forecast)
		v1.POST("/analyze", s.analyze)
		v1.GET("/species", s.species)
	}

	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	return r
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()

	c.Next()

	s.logger.Debug("http",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		slog.Duration("elapsed", time.Since(start)))
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var (
		data    *burn.InsufficientDataError
		history *burn.InsufficientHistoryError
	)

	switch {
	case errors.As(err, &data), errors.As(err, &history), errors.Is(err, burn.ErrNonFinitePrediction):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, burn.ErrInvalidHorizon):
		status = http.StatusBadRequest
	case errors.Is(err, burn.ErrTrainingActive), errors.Is(err, burn.ErrNoModel),
		errors.Is(err, burn.ErrModelReleased):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}

	c.JSON(status, errorResponse{Error: err.Error()})
}

// observations returns the request's observations, or recent history when
// there are none.
func (s *Server) observations(ctx context.Context, obs []burn.Observation, lookback time.Duration) ([]burn.Observation, error) {
	if len(obs) > 0 || s.history == nil {
		return obs, nil
	}

	if lookback <= 0 {
		lookback = s.defaults.Lookback
	}

	return s.history.History(ctx, lookback)
}

type trainRequest struct {
	Observations  []burn.Observation `json:"observations"`
	LookbackHours float64            `json:"lookback_hours"`
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
}

type trainResponse struct {
	ID           string `json:"id"`
	Observations int    `json:"observations"`
}

func (s *Server) startTraining(c *gin.Context) {
	var req trainRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	obs, err := s.observations(c.Request.Context(), req.Observations,
		time.Duration(req.LookbackHours*float64(time.Hour)))
	if err != nil {
		s.fail(c, err)

		return
	}

	if !req.From.IsZero() || !req.To.IsZero() {
		to := req.To
		if to.IsZero() {
			to = time.Now()
		}

		obs = burn.Window(obs, req.From, to)
	}

	// The run outlives the request.
	train, err := s.session.StartTraining(context.WithoutCancel(c.Request.Context()), obs)
	if err != nil {
		s.fail(c, err)

		return
	}

	r := newRun(train)
	s.track(r)

	go r.watch()

	c.JSON(http.StatusAccepted, trainResponse{ID: r.id, Observations: len(obs)})
}

func (s *Server) track(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[r.id] = r
	s.order = append(s.order, r.id)

	for len(s.order) > keptRuns {
		oldest := s.runs[s.order[0]]
		if !oldest.done() {
			break
		}

		delete(s.runs, oldest.id)
		s.order = s.order[1:]
	}
}

func (s *Server) lookup(c *gin.Context) *run {
	s.mu.Lock()
	r, ok := s.runs[c.Param("id")]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "unknown training run"})

		return nil
	}

	return r
}

func (s *Server) trainingStatus(c *gin.Context) {
	if r := s.lookup(c); r != nil {
		c.JSON(http.StatusOK, r.status())
	}
}

// trainingEvents streams the run's progress as server-sent events, replaying
// earlier epochs first, and ends with a "done" event carrying the status.
func (s *Server) trainingEvents(c *gin.Context) {
	r := s.lookup(c)
	if r == nil {
		return
	}

	var next int

	c.Stream(func(io.Writer) bool {
		events, changed, finished := r.since(next)

		for _, p := range events {
			c.SSEvent("progress", p)
		}

		next += len(events)

		if finished {
			c.SSEvent("done", r.status())

			return false
		}

		select {
		case <-changed:
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) cancelTraining(c *gin.Context) {
	r := s.lookup(c)
	if r == nil {
		return
	}

	r.train.Cancel()
	c.JSON(http.StatusAccepted, r.status())
}

type forecastRequest struct {
	Recent      []burn.Observation `json:"recent"`
	OutdoorTemp *float64           `json:"outdoor_temp"`
	FillLevel   *float64           `json:"fill_level"`
	FuelBTU     float64            `json:"fuel_btu"`
	Mix         []burn.MixPart     `json:"mix"`
	Hours       float64            `json:"hours"`
	Confidence  float64            `json:"confidence"`
	At          time.Time          `json:"at"`
}

type forecastResponse struct {
	Conditions burn.Conditions        `json:"conditions"`
	Points     []burn.PredictionPoint `json:"points"`
}

func (s *Server) forecast(c *gin.Context) {
	var req forecastRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	ctx := c.Request.Context()

	recent, err := s.observations(ctx, req.Recent, 0)
	if err != nil {
		s.fail(c, err)

		return
	}

	cond, err := s.conditions(ctx, &req)
	if err != nil {
		s.fail(c, err)

		return
	}

	level := req.Confidence
	if level <= 0 {
		level = s.defaults.Confidence
	}

	points, err := s.session.ForecastWithConfidence(recent, cond.Context(), cond.Horizon(), level)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, forecastResponse{Conditions: cond, Points: points})
}

func (s *Server) conditions(ctx context.Context, req *forecastRequest) (burn.Conditions, error) {
	cond := burn.Conditions{
		FillLevel:       s.defaults.FillLevel,
		FuelBTU:         req.FuelBTU,
		PredictionHours: req.Hours,
		At:              req.At,
	}

	if req.FillLevel != nil {
		cond.FillLevel = *req.FillLevel
	}

	if cond.PredictionHours <= 0 {
		cond.PredictionHours = s.defaults.Hours
	}

	if cond.FuelBTU <= 0 {
		mix := req.Mix
		if len(mix) == 0 {
			mix = s.defaults.Mix
		}

		cond.FuelBTU = burn.MixBTU(mix)
	}

	switch {
	case req.OutdoorTemp != nil:
		cond.OutdoorTemp = *req.OutdoorTemp
	case s.weather != nil:
		r, err := s.weather.Current(ctx)
		if err != nil {
			return cond, err
		}

		cond.OutdoorTemp = r.Temperature
	}

	return cond, nil
}

type analyzeRequest struct {
	Predictions []burn.PredictionPoint `json:"predictions"`
	Historical  []burn.Observation     `json:"historical"`
	Selected    []burn.Observation     `json:"selected"`
	Params      burn.Conditions        `json:"params"`
}

type analyzeResponse struct {
	Report  *burn.AnalysisReport `json:"report"`
	Summary string               `json:"summary"`
	Quick   string               `json:"quick"`
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	report, ok := burn.Analyze(req.Predictions, req.Historical, req.Params, req.Selected)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "analysis unavailable"})

		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Report:  report,
		Summary: burn.Summary(report),
		Quick:   burn.QuickSummary(report),
	})
}

func (s *Server) species(c *gin.Context) {
	names := burn.Species()
	woods := make([]burn.Wood, 0, len(names))

	for _, name := range names {
		w, _ := burn.LookupWood(name)
		woods = append(woods, w)
	}

	c.JSON(http.StatusOK, woods)
}
