package daemon

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/types"
)

const (
	defaultLiveInterval = 200 * time.Millisecond
	minLiveInterval     = 10 * time.Millisecond
	liveWriteTimeout    = 2 * time.Second
)

// The daemon listens on a unix socket only, so there is no cross-origin
// browser to guard against.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamEvents forwards hub events as server-sent events until the client
// goes away.
func streamEvents(c *gin.Context) {
	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	logrus.WithField("subscribers", sseHub.Subscribers()).Debug("event stream opened")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})
}

// liveSamples pushes the controller's latest sample at a fixed interval.
// The interval can be set with ?interval=<ms>.
func liveSamples(c *gin.Context) {
	interval := defaultLiveInterval
	if s := c.Query("interval"); s != "" {
		ms, err := strconv.Atoi(s)
		if err != nil {
			badRequest(c, err)
			return
		}
		interval = max(time.Duration(ms)*time.Millisecond, minLiveInterval)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reads are only needed to notice the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
		}

		st := controller.Status()
		frame := types.LiveFrame{
			State:          st.State.String(),
			ElapsedSeconds: st.ElapsedSeconds,
			Captured:       st.Captured,
			Sample:         st.Latest,
		}
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			logrus.WithError(err).Debug("live stream closed")
			return
		}
	}
}
