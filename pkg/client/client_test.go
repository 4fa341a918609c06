package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ubseds/firestand/pkg/config"
	"github.com/ubseds/firestand/pkg/daemon"
	"github.com/ubseds/firestand/pkg/daq/sim"
	"github.com/ubseds/firestand/pkg/events"
	"github.com/ubseds/firestand/pkg/lifecycle"
	"github.com/ubseds/firestand/pkg/types"
	"github.com/ubseds/firestand/pkg/utils/ptr"
)

func startDaemon(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	sock := filepath.Join(dir, "d.sock")

	raw := &config.RawFileConfig{
		PollIntervalMs: ptr.To(10),
		ExportRoot:     ptr.To(dir),
	}
	h := daemon.Handler(config.NewFileFromConfig(raw, filepath.Join(dir, "c.json")), sim.New())

	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		daemon.Close()
	})

	return NewClient(sock)
}

// listenStale leaves a socket file with nobody accepting on it, as a
// crashed daemon does.
func listenStale(t *testing.T) string {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "stale.sock")
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: sock, Net: "unix"})
	if err != nil {
		t.Fatal(err)
	}
	l.SetUnlinkOnClose(false)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	return sock
}

func TestDialErrors(t *testing.T) {
	tests := []struct {
		name   string
		socket func(t *testing.T) string
		want   error
	}{
		{
			name:   "missing socket",
			socket: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.sock") },
			want:   ErrDaemonNotRunning,
		},
		{
			name:   "stale socket",
			socket: listenStale,
			want:   ErrDaemonNotRunning,
		},
		{
			name: "socket without access",
			socket: func(t *testing.T) string {
				if os.Geteuid() == 0 {
					t.Skip("root ignores socket permissions")
				}
				sock := filepath.Join(t.TempDir(), "private.sock")
				l, err := net.Listen("unix", sock)
				if err != nil {
					t.Fatal(err)
				}
				t.Cleanup(func() { l.Close() })
				if err := os.Chmod(sock, 0o600); err != nil {
					t.Fatal(err)
				}
				if err := os.Chmod(filepath.Dir(sock), 0o000); err != nil {
					t.Fatal(err)
				}
				t.Cleanup(func() { os.Chmod(filepath.Dir(sock), 0o700) })
				return sock
			},
			want: ErrPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.socket(t))
			if _, err := c.GetStatus(); !errors.Is(err, tt.want) {
				t.Fatalf("GetStatus err = %v, want %v", err, tt.want)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := c.Live(ctx, 100*time.Millisecond, func(types.LiveFrame) error { return nil })
			if !errors.Is(err, tt.want) {
				t.Fatalf("Live err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnknownMethod(t *testing.T) {
	c := NewClient("/nonexistent")
	if _, err := c.Send("PATCH", "/status", ""); err == nil {
		t.Fatalf("PATCH accepted")
	}
}

func TestCommands(t *testing.T) {
	c := startDaemon(t)

	v, err := c.GetVersion()
	if err != nil || v == "" {
		t.Fatalf("GetVersion = (%q, %v)", v, err)
	}

	res, err := c.AddCalibrationPoint(10, ptr.To(0.03))
	if err != nil {
		t.Fatalf("AddCalibrationPoint: %v", err)
	}
	if res.Accepted {
		t.Fatalf("point accepted before acknowledge")
	}

	if res, err := c.Acknowledge(); err != nil || !res.Accepted {
		t.Fatalf("Acknowledge = (%+v, %v)", res, err)
	}
	for i := 0; i < 5; i++ {
		w := float64(i * 10)
		if res, err := c.AddCalibrationPoint(w, ptr.To(0.01+0.002*w)); err != nil || !res.Accepted {
			t.Fatalf("AddCalibrationPoint(%v) = (%+v, %v)", w, res, err)
		}
	}

	fit, err := c.GetFit()
	if err != nil || fit.Fit == nil {
		t.Fatalf("GetFit = (%+v, %v)", fit, err)
	}

	if res, err := c.RemoveCalibrationPointAt(0); err != nil || !res.Accepted {
		t.Fatalf("RemoveCalibrationPointAt = (%+v, %v)", res, err)
	}
	if res, _ := c.FinishCalibration(); res.Accepted {
		t.Fatalf("finish accepted with 4 points")
	}

	st, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.State != lifecycle.CalibrationInterface || len(st.Points) != 4 {
		t.Fatalf("status = %s with %d points", st.State, len(st.Points))
	}

	if _, err := c.GetRecord(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRecord err = %v, want ErrNotFound", err)
	}

	if _, err := c.SetRate(0); err == nil {
		t.Fatalf("zero rate accepted")
	}
	msg, err := c.SetPollInterval(20)
	if err != nil || msg == "" {
		t.Fatalf("SetPollInterval = (%q, %v)", msg, err)
	}
}

func TestEventsAndLive(t *testing.T) {
	c := startDaemon(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan events.Event, 1)
	go func() {
		_ = c.Events(ctx, func(ev events.Event) error {
			got <- ev
			return errors.New("done")
		})
	}()

	// The subscription is registered asynchronously. Every accepted point
	// publishes a fit event, so keep adding until one arrives.
	_, _ = c.Acknowledge()
	var ev events.Event
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
wait:
	for {
		select {
		case ev = <-got:
			break wait
		case <-ctx.Done():
			t.Fatalf("no event received")
		case <-tick.C:
			_, _ = c.AddCalibrationPoint(1, ptr.To(0.1))
		}
	}
	if ev.Name != events.CalibrationFit && ev.Name != events.LifecycleState {
		t.Fatalf("unexpected event %q", ev.Name)
	}
	if ev.Name == events.CalibrationFit {
		p, err := events.DecodeAs[events.CalibrationFitEvent](ev)
		if err != nil {
			t.Fatalf("DecodeAs: %v", err)
		}
		if p.Points == 0 {
			t.Fatalf("fit event without points: %+v", p)
		}
	}

	frames := 0
	err := c.Live(ctx, 10*time.Millisecond, func(f types.LiveFrame) error {
		frames++
		if f.State == "" {
			t.Errorf("frame without state")
		}
		if frames == 3 {
			return errors.New("enough")
		}
		return nil
	})
	if err == nil || err.Error() != "enough" {
		t.Fatalf("Live = %v", err)
	}
}
