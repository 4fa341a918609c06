package client

import (
	"encoding/json"
	"net/http"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/ubseds/firestand/pkg/acquisition"
	"github.com/ubseds/firestand/pkg/config"
	"github.com/ubseds/firestand/pkg/daq"
	"github.com/ubseds/firestand/pkg/lifecycle"
	"github.com/ubseds/firestand/pkg/types"
)

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return parseStringResponse(ret)
}

func (c *Client) GetStatus() (*lifecycle.Status, error) {
	var st lifecycle.Status
	if err := c.sendJSON(http.MethodGet, "/status", nil, &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get status")
	}
	return &st, nil
}

func (c *Client) GetDevices() ([]daq.Descriptor, error) {
	var descs []daq.Descriptor
	if err := c.sendJSON(http.MethodGet, "/devices", nil, &descs); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list devices")
	}
	return descs, nil
}

func (c *Client) GetLatest() (*acquisition.Sample, error) {
	ret, err := c.Get("/latest")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get latest sample")
	}
	var s acquisition.Sample
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal latest sample")
	}
	return &s, nil
}

func (c *Client) GetRecord() (*types.TestFireRecord, error) {
	ret, err := c.Get("/record")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get test fire record")
	}
	var rec types.TestFireRecord
	if err := json.Unmarshal([]byte(ret), &rec); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal test fire record")
	}
	return &rec, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) setConfig(path string, data string) (string, error) {
	ret, err := c.Put(path, data)
	if err != nil {
		return "", err
	}
	return parseStringResponse(ret)
}

func (c *Client) SetRate(hz float64) (string, error) {
	return c.setConfig("/config/rate", strconv.FormatFloat(hz, 'g', -1, 64))
}

func (c *Client) SetSamplesPerChannel(n int) (string, error) {
	return c.setConfig("/config/samples-per-channel", strconv.Itoa(n))
}

func (c *Client) SetPollInterval(ms int) (string, error) {
	return c.setConfig("/config/poll-interval", strconv.Itoa(ms))
}

func (c *Client) SetExportRoot(dir string) (string, error) {
	b, err := json.Marshal(dir)
	if err != nil {
		return "", err
	}
	return c.setConfig("/config/export-root", string(b))
}

// command sends a lifecycle command. A rejected command is not an error;
// check Accepted on the result.
func (c *Client) command(method, path string, payload any) (*types.CommandResult, error) {
	var res types.CommandResult
	err := c.sendJSON(method, path, payload, &res)
	if err != nil {
		if res.Message != "" {
			return &res, pkgerrors.New(res.Message)
		}
		return nil, err
	}
	return &res, nil
}

func (c *Client) Acknowledge() (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/calibration/ack", nil)
}

// AddCalibrationPoint records weight (pounds). A nil voltage makes the
// daemon measure it.
func (c *Client) AddCalibrationPoint(weight float64, voltage *float64) (*types.CommandResult, error) {
	return c.command(http.MethodPost, "/calibration/points", types.CalibrationPointRequest{
		Weight:  weight,
		Voltage: voltage,
	})
}

func (c *Client) RemoveCalibrationPoint(weight, voltage float64) (*types.CommandResult, error) {
	return c.command(http.MethodDelete, "/calibration/points", types.RemovePointRequest{
		Weight:  &weight,
		Voltage: &voltage,
	})
}

func (c *Client) RemoveCalibrationPointAt(index int) (*types.CommandResult, error) {
	return c.command(http.MethodDelete, "/calibration/points", types.RemovePointRequest{Index: &index})
}

func (c *Client) GetFit() (*types.FitResult, error) {
	var res types.FitResult
	if err := c.sendJSON(http.MethodGet, "/calibration/fit", nil, &res); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get calibration fit")
	}
	return &res, nil
}

func (c *Client) FinishCalibration() (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/calibration/finish", nil)
}

func (c *Client) StartFire() (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/fire/start", nil)
}

func (c *Client) TerminateFire() (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/fire/terminate", nil)
}

func (c *Client) NextReview() (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/review/next", nil)
}

func (c *Client) PreviousReview() (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/review/previous", nil)
}

func (c *Client) ProceedToSave() (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/review/proceed", nil)
}

func (c *Client) Save(tokens ...string) (*types.CommandResult, error) {
	return c.command(http.MethodPut, "/save", types.SaveRequest{Tokens: tokens})
}

func parseStringResponse(resp string) (string, error) {
	var s string
	if err := json.Unmarshal([]byte(resp), &s); err != nil {
		return "", pkgerrors.Wrapf(err, "unexpected response: %s", resp)
	}
	return s, nil
}
