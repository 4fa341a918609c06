package daemon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/config"
	"github.com/ubseds/firestand/pkg/daq"
	"github.com/ubseds/firestand/pkg/export"
	"github.com/ubseds/firestand/pkg/lifecycle"
	"github.com/ubseds/firestand/pkg/types"
	"github.com/ubseds/firestand/pkg/version"
)

func badRequest(c *gin.Context, err error) {
	c.IndentedJSON(http.StatusBadRequest, err.Error())
	_ = c.Error(err)
}

// statusFor maps a command error to an HTTP status. Device and export
// failures are server side.
func statusFor(err error) int {
	if daq.IsConfigurationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondCommand(c *gin.Context, ok bool, err error) {
	res := types.CommandResult{
		Accepted: ok,
		State:    controller.State().String(),
	}
	if err != nil {
		res.Message = err.Error()
		c.IndentedJSON(statusFor(err), res)
		_ = c.Error(err)
		return
	}
	if !ok {
		res.Message = fmt.Sprintf("command not available in state %s", res.State)
	}
	c.IndentedJSON(http.StatusOK, res)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, controller.Status())
}

func getDevices(c *gin.Context) {
	descs, err := controller.Devices()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.Error(err)
		return
	}
	c.IndentedJSON(http.StatusOK, descs)
}

func getLatest(c *gin.Context) {
	s, ok := controller.Latest()
	if !ok {
		c.IndentedJSON(http.StatusNotFound, "no sample available")
		return
	}
	c.IndentedJSON(http.StatusOK, s)
}

func getRecord(c *gin.Context) {
	rec := controller.Record()
	if rec == nil {
		c.IndentedJSON(http.StatusNotFound, "no test fire record")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

// updateConfig applies set and persists the config. Acquisition settings
// cannot change under a running session.
func updateConfig(c *gin.Context, name string, value any, set func() error) {
	if controller.Acquiring() {
		err := fmt.Errorf("cannot change %s while acquiring", name)
		c.IndentedJSON(http.StatusConflict, err.Error())
		_ = c.Error(err)
		return
	}
	if err := set(); err != nil {
		badRequest(c, err)
		return
	}
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.Error(err)
		return
	}

	logrus.WithField(name, value).Infof("%s updated", name)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set %s to %v", name, value))
}

func setRate(c *gin.Context) {
	var r float64
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	updateConfig(c, "rate", r, func() error { return conf.SetRate(r) })
}

func setSamplesPerChannel(c *gin.Context) {
	var n int
	if err := c.ShouldBindJSON(&n); err != nil {
		badRequest(c, err)
		return
	}
	updateConfig(c, "samplesPerChannel", n, func() error { return conf.SetSamplesPerChannel(n) })
}

func setPollInterval(c *gin.Context) {
	var ms int
	if err := c.ShouldBindJSON(&ms); err != nil {
		badRequest(c, err)
		return
	}
	d := time.Duration(ms) * time.Millisecond
	updateConfig(c, "pollInterval", d, func() error { return conf.SetPollInterval(d) })
}

func setExportRoot(c *gin.Context) {
	var dir string
	if err := c.ShouldBindJSON(&dir); err != nil {
		badRequest(c, err)
		return
	}
	updateConfig(c, "exportRoot", dir, func() error { return conf.SetExportRoot(dir) })
}

func acknowledge(c *gin.Context) {
	ok, err := controller.Acknowledge()
	respondCommand(c, ok, err)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func addCalibrationPoint(c *gin.Context) {
	var req types.CalibrationPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !finite(req.Weight) || req.Weight < 0 {
		badRequest(c, fmt.Errorf("weight must be a non-negative number, got %v", req.Weight))
		return
	}

	var src lifecycle.VoltageSource
	if req.Voltage != nil {
		v := *req.Voltage
		if !finite(v) {
			badRequest(c, fmt.Errorf("invalid voltage %v", v))
			return
		}
		src = func(context.Context) (float64, error) { return v, nil }
	} else {
		src = func(ctx context.Context) (float64, error) {
			if wa, ok := drv.(weightApplier); ok {
				wa.ApplyWeight(req.Weight)
			}
			return controller.DeviceVoltage(ctx)
		}
	}

	ok, err := controller.SubmitCalibrationPoint(c.Request.Context(), req.Weight, src)
	respondCommand(c, ok, err)
}

func removeCalibrationPoint(c *gin.Context) {
	var req types.RemovePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var ok bool
	var err error
	switch {
	case req.Index != nil:
		ok, err = controller.RemoveCalibrationPointAt(*req.Index)
	case req.Weight != nil && req.Voltage != nil:
		ok, err = controller.RemoveCalibrationPoint(*req.Weight, *req.Voltage)
	default:
		badRequest(c, errors.New("either index or both weight and voltage are required"))
		return
	}
	respondCommand(c, ok, err)
}

func getFit(c *gin.Context) {
	res := types.FitResult{Points: len(controller.Points())}
	fit, err := controller.CurrentFit()
	if err != nil {
		res.Error = err.Error()
	}
	res.Fit = fit
	c.IndentedJSON(http.StatusOK, res)
}

func finishCalibration(c *gin.Context) {
	ok, err := controller.FinishCalibration()
	respondCommand(c, ok, err)
}

func startFire(c *gin.Context) {
	ok, err := controller.StartTestFire()
	respondCommand(c, ok, err)
}

func terminateFire(c *gin.Context) {
	ok, err := controller.TerminateTestFire()
	respondCommand(c, ok, err)
}

func advanceReview(c *gin.Context) {
	ok, err := controller.AdvanceReview()
	respondCommand(c, ok, err)
}

func retreatReview(c *gin.Context) {
	ok, err := controller.RetreatReview()
	respondCommand(c, ok, err)
}

func proceedToSave(c *gin.Context) {
	ok, err := controller.ProceedToSave()
	respondCommand(c, ok, err)
}

func save(c *gin.Context) {
	var req types.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := export.DestinationName(req.Tokens...); err != nil {
		badRequest(c, err)
		return
	}

	dir, ok, err := controller.Save(req.Tokens...)
	if err != nil || !ok {
		respondCommand(c, ok, err)
		return
	}
	c.IndentedJSON(http.StatusOK, types.CommandResult{
		Accepted: true,
		State:    controller.State().String(),
		Message:  "saved to " + strings.TrimSpace(dir),
		Dir:      dir,
	})
}
