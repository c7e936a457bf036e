package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chargesteer/chargesteer/internal/core/domain"
)

const actorRequestTimeout = 10 * time.Second

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.config.HttpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/", s.IndexHandler)
	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/points", s.ListPointsHandler)
	api.GET("/points/:id", s.GetPointHandler)
	api.POST("/points/:id/mode/:mode", s.SetModeHandler)
	api.POST("/points/:id/limit", s.SetLimitHandler)
	api.POST("/points/:id/soc", s.SetSoCHandler)
	api.GET("/points/:id/boost", s.GetBoostHandler)
	api.POST("/points/:id/boost", s.SetBoostHandler)
	api.POST("/points/:id/schedule", s.SetScheduleHandler)
	api.GET("/config/eco", s.GetEcoConfigHandler)
	api.POST("/config/eco", s.SetEcoConfigHandler)
	api.GET("/weather", s.WeatherHandler)
	api.GET("/price", s.PriceHandler)
	api.GET("/stats", s.StatsHandler)
	api.GET("/logs", s.LogsHandler)

	return e
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) ask(msg interface{}) (interface{}, error) {
	return s.rootContext.RequestFuture(s.masterActor, msg, actorRequestTimeout).Result()
}

// responseError maps actor-side errors onto HTTP status codes.
func responseError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrUnknownPoint) {
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func (s *Server) IndexHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "chargesteer",
		"version": versioninfo.Short(),
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.ask(domain.ActorHealthRequest{})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) ListPointsHandler(c echo.Context) error {
	res, err := s.ask(domain.ListPointsRequest{})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.ListPointsResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Points)
}

func (s *Server) GetPointHandler(c echo.Context) error {
	res, err := s.ask(domain.GetPointRequest{PointID: c.Param("id")})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.GetPointResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Point)
}

func (s *Server) SetModeHandler(c echo.Context) error {
	mode, err := domain.ParsePowerMode(c.Param("mode"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	res, err := s.ask(domain.SetModeRequest{PointID: c.Param("id"), Mode: mode})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.SetModeResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Point)
}

// SetLimitHandler applies a manual target. This implicitly transitions the
// point into manual mode.
func (s *Server) SetLimitHandler(c echo.Context) error {
	kw, err := strconv.ParseFloat(c.QueryParam("kw"), 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid kw value"})
	}
	if kw < 0 || kw > s.config.Power.MaxKW {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: "kw outside allowed range"})
	}
	res, err := s.ask(domain.SetManualLimitRequest{PointID: c.Param("id"), KW: kw})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.SetManualLimitResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Point)
}

type setSoCBody struct {
	SoC int `json:"soc"`
}

func (s *Server) SetSoCHandler(c echo.Context) error {
	var body setSoCBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}
	if body.SoC < 0 || body.SoC > 100 {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: "soc outside [0, 100]"})
	}
	res, err := s.ask(domain.SetSoCRequest{PointID: c.Param("id"), SoC: body.SoC})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.SetSoCResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Point)
}

func (s *Server) GetBoostHandler(c echo.Context) error {
	res, err := s.ask(domain.GetBoostConfigRequest{PointID: c.Param("id")})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.GetBoostConfigResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Config)
}

func (s *Server) SetBoostHandler(c echo.Context) error {
	var body domain.BoostConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}
	if err := body.Validate(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	}
	res, err := s.ask(domain.SetBoostConfigRequest{PointID: c.Param("id"), Config: body})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.SetBoostConfigResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Config)
}

// SetScheduleHandler writes the deadline config consulted by schedule mode.
// It shares storage with the boost config, so the enabled flag and cutoff
// written here also apply to eco-mode boost windows.
func (s *Server) SetScheduleHandler(c echo.Context) error {
	var body domain.BoostConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}
	if body.BatteryKWh <= 0 || body.ChargeEfficiency <= 0 {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: "battery_kwh and charge_efficiency are required"})
	}
	if err := body.Validate(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	}
	res, err := s.ask(domain.SetBoostConfigRequest{PointID: c.Param("id"), Config: body})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.SetBoostConfigResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Config)
}

func (s *Server) GetEcoConfigHandler(c echo.Context) error {
	res, err := s.ask(domain.GetEcoConfigRequest{})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.GetEcoConfigResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Config)
}

func (s *Server) SetEcoConfigHandler(c echo.Context) error {
	var body domain.EcoConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body"})
	}
	if err := body.Validate(s.config.Power.Bounds()); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	}
	res, err := s.ask(domain.SetEcoConfigRequest{Config: body})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.SetEcoConfigResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, response.Config)
}

func (s *Server) WeatherHandler(c echo.Context) error {
	res, err := s.ask(domain.GetSignalSnapshotRequest{})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.GetSignalSnapshotResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.Weather == nil {
		return c.JSON(http.StatusNotFound, errorBody{Error: "no fresh weather data"})
	}
	return c.JSON(http.StatusOK, response.Weather)
}

type priceView struct {
	AsOf               time.Time          `json:"as_of"`
	CurrentCt          *float64           `json:"current_ct_per_kwh,omitempty"`
	MedianCt           *float64           `json:"median_ct_per_kwh,omitempty"`
	BelowOrEqualMedian bool               `json:"below_or_equal_median"`
	Slots              []domain.PriceSlot `json:"slots"`
}

func (s *Server) PriceHandler(c echo.Context) error {
	res, err := s.ask(domain.GetSignalSnapshotRequest{})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.GetSignalSnapshotResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.Prices == nil {
		return c.JSON(http.StatusNotFound, errorBody{Error: "no fresh price data"})
	}
	now := time.Now()
	view := priceView{AsOf: response.Prices.AsOf, Slots: response.Prices.Slots}
	if v, ok := response.Prices.CurrentAt(now); ok {
		view.CurrentCt = &v
	}
	if v, ok := response.Prices.MedianAt(now); ok {
		view.MedianCt = &v
	}
	if view.CurrentCt != nil && view.MedianCt != nil {
		view.BelowOrEqualMedian = *view.CurrentCt <= *view.MedianCt
	}
	return c.JSON(http.StatusOK, view)
}

type statsView struct {
	Total    domain.WindowTotals            `json:"total"`
	PerPoint map[string]domain.WindowTotals `json:"per_point"`
}

func (s *Server) StatsHandler(c echo.Context) error {
	res, err := s.ask(domain.GetStatsRequest{})
	if err != nil {
		return responseError(c, err)
	}
	response, ok := res.(domain.GetStatsResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return responseError(c, response.GetResponseError())
	}
	return c.JSON(http.StatusOK, statsView{Total: response.Total, PerPoint: response.PerPoint})
}

// LogsHandler serves the most recent log lines from the in-process ring.
func (s *Server) LogsHandler(c echo.Context) error {
	limit := 200
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 10 {
		limit = 10
	}
	if limit > 500 {
		limit = 500
	}
	return c.JSON(http.StatusOK, s.logBuffer.Last(limit))
}
