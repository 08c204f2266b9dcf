package rest

import (
	"bytes"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/scheduler"
	"github.com/oystub/barbershop/shop"
)

type ShopRestImpl struct {
	shop *shop.Shop
}

// NewServer returns an echo instance serving the control API of s.
func NewServer(s *shop.Shop) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(s.Log.Out)
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Output: s.Log.Out}))
	e.Use(middleware.Recover())
	RegisterHandlers(e, &ShopRestImpl{shop: s})
	return e
}

func RegisterHandlers(e *echo.Echo, impl *ShopRestImpl) {
	e.GET("/status", impl.GetStatus)
	e.POST("/start", impl.Start)
	e.POST("/stop", impl.Stop)
	e.GET("/customers", impl.GetCustomers)
	e.GET("/runs", impl.GetRuns)
	e.GET("/graph", impl.GetGraph)
	e.GET("/log", impl.GetLog)
	e.GET("/config", impl.GetConfig)
	e.POST("/config", impl.EditConfig)
}

// Returns the status of the current or most recent run
// (GET /status)
func (impl *ShopRestImpl) GetStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, impl.shop.Status())
}

// Starts a new run with the configuration file
// (POST /start)
func (impl *ShopRestImpl) Start(ctx echo.Context) error {
	id, err := impl.shop.Start()
	switch {
	case err == nil:
		return ctx.JSON(http.StatusCreated, StartResponse{RunID: id})
	case errors.Cause(err) == scheduler.ErrAlreadyRunning:
		return ctx.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, scheduler.ErrInvalidConfig):
		return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error()})
	default:
		return err
	}
}

// Stops the current run and returns its final status
// (POST /stop)
func (impl *ShopRestImpl) Stop(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, impl.shop.Stop())
}

// Returns the customers of a run, the current one if no run is given
// (GET /customers?run=<id>)
func (impl *ShopRestImpl) GetCustomers(ctx echo.Context) error {
	param := ctx.QueryParam("run")
	if param == "" {
		_, customers := impl.shop.Customers()
		return ctx.JSON(http.StatusOK, customers)
	}
	id, err := uuid.Parse(param)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: "malformed run id"})
	}
	customers, err := impl.shop.CustomersOf(id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, customers)
}

// Returns the run history, most recent first
// (GET /runs)
func (impl *ShopRestImpl) GetRuns(ctx echo.Context) error {
	runs, err := impl.shop.Runs()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, runs)
}

// Returns the link graph of the current or most recent run in DOT format
// (GET /graph)
func (impl *ShopRestImpl) GetGraph(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := impl.shop.Graph().WriteDOT(&buf); err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, "text/vnd.graphviz", buf.Bytes())
}

// Returns the most recent log entries as JSON lines
// (GET /log)
func (impl *ShopRestImpl) GetLog(ctx echo.Context) error {
	return ctx.Blob(http.StatusOK, "application/x-ndjson", []byte(impl.shop.Buffer.GetText()))
}

// Returns the configuration the next run will use
// (GET /config)
func (impl *ShopRestImpl) GetConfig(ctx echo.Context) error {
	cfg, err := impl.shop.Config()
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error()})
	}
	return ctx.JSON(http.StatusOK, cfg)
}

// Changes one key of the configuration file
// (POST /config)
func (impl *ShopRestImpl) EditConfig(ctx echo.Context) error {
	var req EditRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	cfg, err := impl.shop.Edit(req.Key, req.Value)
	if errors.Cause(err) == config.ErrUnknownKey {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error()})
	}
	return ctx.JSON(http.StatusOK, cfg)
}
