package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/acquisition"
	"github.com/ubseds/firestand/pkg/config"
	"github.com/ubseds/firestand/pkg/daq"
	"github.com/ubseds/firestand/pkg/daq/sim"
	"github.com/ubseds/firestand/pkg/events"
	"github.com/ubseds/firestand/pkg/lifecycle"
)

var (
	conf       config.Config
	drv        daq.Driver
	controller *lifecycle.Controller
	sseHub     *events.EventHub
)

// weightApplier is implemented by simulated drivers, which need to know
// the weight the operator put on the load cell.
type weightApplier interface {
	ApplyWeight(pounds float64)
}

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))

	router.GET("/version", getVersion)
	router.GET("/status", getStatus)
	router.GET("/devices", getDevices)
	router.GET("/latest", getLatest)
	router.GET("/record", getRecord)

	router.GET("/config", getConfig)
	router.PUT("/config/rate", setRate)
	router.PUT("/config/samples-per-channel", setSamplesPerChannel)
	router.PUT("/config/poll-interval", setPollInterval)
	router.PUT("/config/export-root", setExportRoot)

	cal := router.Group("/calibration")
	cal.PUT("/ack", acknowledge)
	cal.POST("/points", addCalibrationPoint)
	cal.DELETE("/points", removeCalibrationPoint)
	cal.GET("/fit", getFit)
	cal.PUT("/finish", finishCalibration)

	router.PUT("/fire/start", startFire)
	router.PUT("/fire/terminate", terminateFire)

	router.PUT("/review/next", advanceReview)
	router.PUT("/review/previous", retreatReview)
	router.PUT("/review/proceed", proceedToSave)

	router.PUT("/save", save)

	router.GET("/events", streamEvents)
	router.GET("/live", liveSamples)

	return router
}

func currentSettings() lifecycle.Settings {
	clip := conf.LegacyChannelClipping()
	return lifecycle.Settings{
		DeviceIndex: conf.DeviceIndex(),
		Session: acquisition.Options{
			PressureChannel:   conf.PressureChannel(),
			LoadChannel:       conf.LoadChannel(),
			Rate:              conf.Rate(),
			SamplesPerChannel: conf.SamplesPerChannel(),
			PollInterval:      conf.PollInterval(),
			ClipChannels:      clip,
		},
		Voltage: acquisition.VoltageOptions{
			DeviceIndex:  conf.DeviceIndex(),
			Channel:      conf.LoadChannel(),
			Rate:         conf.CalibrationRate(),
			Samples:      conf.CalibrationSamples(),
			Settle:       conf.CalibrationSettle(),
			ClipChannels: clip,
		},
		ExportRoot: conf.ExportRoot(),
	}
}

// setup wires the package state used by the handlers.
func setup(c config.Config, d daq.Driver) {
	conf = c
	drv = d
	sseHub = events.NewEventHub()
	controller = lifecycle.NewController(drv, currentSettings, lifecycle.WithEventHub(sseHub))
}

// Handler wires c and d into the API without listening anywhere. Close
// must be called when done with it.
func Handler(c config.Config, d daq.Driver) http.Handler {
	setup(c, d)
	return setupRoutes()
}

// Close stops any running acquisition.
func Close() {
	if controller != nil {
		controller.Close()
	}
}

func newDriver(simulate bool) (daq.Driver, error) {
	if simulate {
		logrus.Warn("using the simulated DAQ driver, no hardware will be touched")
		return sim.New(), nil
	}
	return nil, errors.New("no hardware DAQ driver is built into this binary, run with --simulate")
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool, simulate bool) error {
	c, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(c.LogrusFields()).Infof("config loaded")

	d, err := newDriver(simulate)
	if err != nil {
		return err
	}
	setup(c, d)
	router := setupRoutes()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(c.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	// A stale socket from a crashed daemon would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to remove stale socket %s: %v", unixSocketPath, err)
	}

	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	// The device must be released even if an acquisition is running.
	logrus.Info("stopping acquisition")
	Close()

	logrus.Info("exiting")
	return nil
}
