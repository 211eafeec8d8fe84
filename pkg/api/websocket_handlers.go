package api

import (
	"encoding/json"
	"errors"
	"syscall"
	"time"

	"github.com/forcemove/controller/domain/drive"
	customlog "github.com/forcemove/controller/pkg/log"
	"github.com/gofiber/contrib/websocket"
)

// ControlWebSocketHandler handles incoming WebSocket messages for drive
// control: each text frame is a geometry_msgs/Twist shaped JSON command.
func ControlWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, service *drive.Service) {
	logger.Infof("Control WebSocket connected: %s", conn.RemoteAddr())
	var (
		mt  int
		msg []byte
		err error
	)
	for {
		if mt, msg, err = conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("Control WS read error: %v", err)
			} else {
				if err != websocket.ErrCloseSent && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
					logger.Infof("Control WS connection closed: %v", err)
				} else {
					logger.Infof("Control WS connection closed normally.")
				}
			}
			break
		}

		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Control WS message type: %d", mt)
			continue
		}

		// Validate before enqueueing so malformed frames are dropped here
		// instead of poisoning the ingestion pool.
		var cmd drive.TwistCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			logger.Warnf("Failed to unmarshal Twist command from WS: %v. Message: %s", err, string(msg))
			continue
		}

		logger.Debugf("Received Twist command via WS: LinearX=%.2f, LinearY=%.2f, AngularZ=%.2f",
			cmd.Linear.X, cmd.Linear.Y, cmd.Angular.Z)

		if !service.EnqueueCommand(cmd) {
			logger.Warnf("Drive command from WS dropped, ingestion queue unavailable")
		}
	}
	logger.Infof("Control WebSocket disconnected: %s", conn.RemoteAddr())
}

// OdometryWebSocketHandler streams the latest odometry sample to the
// client at the given interval until the connection closes.
func OdometryWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, service *drive.Service, interval time.Duration) {
	logger.Infof("Odometry WebSocket connected: %s", conn.RemoteAddr())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastStamp float64
	for range ticker.C {
		odom, ok := service.LastOdometry()
		if !ok || odom.Stamp == lastStamp {
			continue
		}
		lastStamp = odom.Stamp

		if err := conn.WriteJSON(odom); err != nil {
			logger.Infof("Odometry WS connection closed: %v", err)
			break
		}
	}

	logger.Infof("Odometry WebSocket disconnected: %s", conn.RemoteAddr())
}
