package api

import (
	"errors"
	"time"

	"heliowatch/internal/cme"
	"heliowatch/internal/domain/models"
	domrepo "heliowatch/internal/domain/repository"
	domsvc "heliowatch/internal/domain/service"
	ametrics "heliowatch/internal/service/metrics"
	"heliowatch/internal/usecase"
	xhttp "heliowatch/pkg/http"
	applogger "heliowatch/pkg/logger"
	"heliowatch/pkg/util"

	"github.com/labstack/echo/v4"
)

// DashboardHandler exposes the dashboard HTTP API: the global risk
// index, instrument listings, on-demand analysis, and reading history.
type DashboardHandler struct {
	logger   *applogger.Logger
	sampler  *usecase.RiskSampler
	snapshot *usecase.LatestSnapshot
	statuses *usecase.InstrumentStatusUseCase
	analysis *usecase.InstrumentAnalysisUseCase
	readings *usecase.ReadingsQueryUseCase

	defaultSteps int
	defaultStep  time.Duration

	store     domrepo.Storage
	connected func() bool
}

// SetHealth injects the dependencies probed by /healthz. Either may be
// nil when the corresponding subsystem is not configured.
func (h *DashboardHandler) SetHealth(store domrepo.Storage, connected func() bool) {
	h.store = store
	h.connected = connected
}

// NewDashboardHandler wires the handler. Forecast defaults come from
// config and apply when the request leaves steps/step unset.
func NewDashboardHandler(
	logger *applogger.Logger,
	sampler *usecase.RiskSampler,
	snapshot *usecase.LatestSnapshot,
	statuses *usecase.InstrumentStatusUseCase,
	analysis *usecase.InstrumentAnalysisUseCase,
	readings *usecase.ReadingsQueryUseCase,
	defaultSteps int,
	defaultStep time.Duration,
) *DashboardHandler {
	ametrics.Register()
	return &DashboardHandler{
		logger:       logger,
		sampler:      sampler,
		snapshot:     snapshot,
		statuses:     statuses,
		analysis:     analysis,
		readings:     readings,
		defaultSteps: defaultSteps,
		defaultStep:  defaultStep,
	}
}

// RegisterRoutes binds all dashboard routes to the echo instance.
func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/risk", h.Risk)
	g.GET("/instruments", h.Instruments)
	g.GET("/instruments/analysis", h.Analysis)
	g.GET("/classification", h.Classification)
	g.GET("/detection", h.Detection)
	g.GET("/forecast", h.Forecast)
	g.GET("/readings", h.Readings)
	e.GET("/healthz", h.Healthz)
}

type healthResponse struct {
	Status  string `json:"status"`
	Stream  string `json:"stream,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// Healthz reports subsystem health. Degraded subsystems flip the
// overall status but the endpoint still answers 200 so probes can
// distinguish "degraded" from "down".
func (h *DashboardHandler) Healthz(c echo.Context) error {
	res := healthResponse{Status: "ok"}
	if h.connected != nil {
		res.Stream = "connected"
		if !h.connected() {
			res.Stream = "disconnected"
			res.Status = "degraded"
		}
	}
	if h.store != nil {
		res.Storage = "ok"
		if err := h.store.Health(c.Request().Context()); err != nil {
			res.Storage = err.Error()
			res.Status = "degraded"
		}
	}
	return xhttp.SuccessResponse(c, res)
}

type riskResponse struct {
	Risk     models.RiskIndex `json:"risk"`
	Snapshot models.Snapshot  `json:"snapshot"`
}

// Risk returns the latest sampled risk index with the snapshot behind it.
func (h *DashboardHandler) Risk(c echo.Context) error {
	ri, ok := h.sampler.Latest()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("risk index not computed yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, riskResponse{Risk: ri, Snapshot: h.snapshot.Snapshot()})
}

// Instruments lists all instruments with their latest reading and
// detection counters.
func (h *DashboardHandler) Instruments(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.statuses.List())
}

// Analysis returns the aggregate classification/detection/forecast view
// for one instrument.
func (h *DashboardHandler) Analysis(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analysis.Analyze(c.Request().Context(), usecase.AnalysisParams{
		Instrument: models.Instrument(req.Instrument),
		Steps:      h.stepsOrDefault(req.Steps),
		Step:       h.stepOrDefault(req.StepSecs),
	})
	if err != nil {
		return h.analysisError(c, "analysis", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Classification returns the classification section alone.
func (h *DashboardHandler) Classification(c echo.Context) error {
	req := &models.ClassificationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analysis.Classify(c.Request().Context(), models.Instrument(req.Instrument))
	if err != nil {
		return h.analysisError(c, "classification", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Detection returns the detection section alone.
func (h *DashboardHandler) Detection(c echo.Context) error {
	req := &models.DetectionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analysis.Detect(c.Request().Context(), models.Instrument(req.Instrument))
	if err != nil {
		return h.analysisError(c, "detection", err)
	}
	return xhttp.SuccessResponse(c, res)
}

type forecastResponse struct {
	Instrument models.Instrument      `json:"instrument"`
	Points     []models.ForecastPoint `json:"points"`
	Stale      bool                   `json:"stale,omitempty"`
}

// Forecast returns the model horizon for one instrument.
func (h *DashboardHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id := models.Instrument(req.Instrument)
	points, stale, err := h.analysis.Forecast(c.Request().Context(), id,
		h.stepsOrDefault(req.Steps), h.stepOrDefault(req.StepSecs))
	if err != nil {
		return h.analysisError(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, forecastResponse{Instrument: id, Points: points, Stale: stale})
}

// Readings returns stored history for one instrument.
func (h *DashboardHandler) Readings(c echo.Context) error {
	req := &models.ReadingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var from, to time.Time
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from: unrecognized time format"))
		}
		from = t
	}
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to: unrecognized time format"))
		}
		to = t
	}

	rows, err := h.readings.Query(c.Request().Context(), usecase.QueryParams{
		Instrument: models.Instrument(req.Instrument),
		From:       from,
		To:         to,
		Limit:      req.Limit,
	})
	if err != nil {
		h.logger.Error("readings query", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// analysisError maps domain errors to HTTP semantics: unregistered
// models and absent readings are 404, prediction failures are 503.
func (h *DashboardHandler) analysisError(c echo.Context, section string, err error) error {
	switch {
	case errors.Is(err, domsvc.ErrModelUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, cme.ErrMissingInstrument):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, domsvc.ErrPredictionFailure):
		ametrics.AnalysisErrors.WithLabelValues(section).Inc()
		h.logger.Error(section+" prediction failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError(err.Error()))
	default:
		h.logger.Error(section+" usecase error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}

func (h *DashboardHandler) stepsOrDefault(steps int) int {
	if steps > 0 {
		return steps
	}
	return h.defaultSteps
}

func (h *DashboardHandler) stepOrDefault(stepSecs int) time.Duration {
	if stepSecs > 0 {
		return time.Duration(stepSecs) * time.Second
	}
	return h.defaultStep
}
