package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Client talks to the firestand daemon over its unix socket.
type Client struct {
	socketPath string
	httpClient *http.Client
}

// NewClient is a constructor for creating a new Client
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialUnix(ctx, socketPath)
				},
			},
		},
	}
}

// dialUnix maps the socket errors a client can hit to ErrDaemonNotRunning
// and ErrPermissionDenied. The dial error is a *net.OpError, so the
// syscall error is matched through its chain. A refused connection means
// the socket file was left behind by a daemon that is gone.
func dialUnix(ctx context.Context, socketPath string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ECONNREFUSED):
			logrus.WithError(err).Debug("daemon socket is not accepting connections")
			return nil, ErrDaemonNotRunning
		case errors.Is(err, fs.ErrPermission):
			logrus.WithError(err).Debug("no permission to connect to daemon socket")
			return nil, ErrPermissionDenied
		}
		logrus.Errorf("failed to connect to unix socket: %v", err)
		return nil, err
	}
	return conn, nil
}

// Send is a method for sending a request to the firestand daemon. data is
// sent as the request body when non-empty.
func (c *Client) Send(method string, path string, data string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"data":   data,
		"unix":   c.socketPath,
	}).Debug("sending request")

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return "", fmt.Errorf("unknown method: %s", method)
	}

	var body io.Reader
	if data != "" {
		body = bytes.NewBufferString(data)
	}
	req, err := http.NewRequest(method, "http://unix"+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if data != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	ret := string(b)

	if resp.StatusCode == http.StatusNotFound {
		return ret, fmt.Errorf("%w: %s", ErrNotFound, ret)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ret, &StatusError{Code: resp.StatusCode, Body: ret}
	}

	return ret, nil
}

// Get is a method for sending a GET request to the firestand daemon
func (c *Client) Get(path string) (string, error) {
	return c.Send(http.MethodGet, path, "")
}

// Put is a method for sending a PUT request to the firestand daemon
func (c *Client) Put(path string, data string) (string, error) {
	return c.Send(http.MethodPut, path, data)
}

// Post is a method for sending a POST request to the firestand daemon
func (c *Client) Post(path string, data string) (string, error) {
	return c.Send(http.MethodPost, path, data)
}

// Delete is a method for sending a DELETE request to the firestand daemon
func (c *Client) Delete(path string, data string) (string, error) {
	return c.Send(http.MethodDelete, path, data)
}

// sendJSON encodes payload (if any), sends it and decodes the response
// into out. Error responses are decoded too when they carry JSON.
func (c *Client) sendJSON(method, path string, payload any, out any) error {
	var data string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		data = string(b)
	}

	ret, err := c.Send(method, path, data)
	if out != nil && ret != "" {
		if uerr := json.Unmarshal([]byte(ret), out); uerr != nil && err == nil {
			return fmt.Errorf("failed to decode response: %w", uerr)
		}
	}
	return err
}
