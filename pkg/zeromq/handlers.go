package zeromq

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/forcemove/controller/pkg/config"
)

// ConfigHandler handles CONFIG_REQUEST messages
type ConfigHandler struct {
	config *config.Config
	logger *log.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(cfg *config.Config, logger *log.Logger) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
		logger: logger,
	}
}

// HandleMessage processes a CONFIG_REQUEST message and returns a CONFIG_RESPONSE
func (h *ConfigHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	if msg.Type != MsgTypeConfigRequest {
		return nil, fmt.Errorf("unexpected message type: %s", msg.Type)
	}

	h.logger.Printf("Processing configuration request")

	response := ZeroMQMessage{
		Type:      MsgTypeConfigResponse,
		Timestamp: float64(time.Now().Unix()),
		Data:      mustMarshal(h.config),
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		h.logger.Printf("Error serializing response: %v", err)
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	h.logger.Printf("Sending configuration response (%d bytes)", len(responseData))
	return responseData, nil
}

// CommandEnqueuer accepts a raw inbound velocity command for ingestion.
// Implemented by the drive service; decouples the transport layer from
// the domain.
type CommandEnqueuer interface {
	EnqueueRawCommand(topic string, payload []byte) bool
}

// DriveCommandHandler handles DRIVE_COMMAND request messages: the twist
// payload is handed to the command ingestion path and an ACK is returned.
// This is the synchronous (REQ/REP) alternative to the SUB command topic.
type DriveCommandHandler struct {
	enqueuer CommandEnqueuer
	topic    string
	logger   *log.Logger
}

// NewDriveCommandHandler creates a new handler for drive command requests
func NewDriveCommandHandler(enqueuer CommandEnqueuer, topic string, logger *log.Logger) *DriveCommandHandler {
	return &DriveCommandHandler{
		enqueuer: enqueuer,
		topic:    topic,
		logger:   logger,
	}
}

// HandleMessage processes a DRIVE_COMMAND message
func (h *DriveCommandHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse drive command message: %w", err)
	}

	if msg.Type != MsgTypeDriveCommand {
		return nil, fmt.Errorf("unexpected message type for DriveCommandHandler: %s", msg.Type)
	}
	if len(msg.Data) == 0 {
		return nil, fmt.Errorf("drive command message has no data")
	}

	accepted := h.enqueuer.EnqueueRawCommand(h.topic, msg.Data)
	if !accepted {
		return nil, fmt.Errorf("drive command rejected, ingestion queue unavailable")
	}

	ackResponse := ZeroMQMessage{
		Type:      MsgTypeAck,
		Timestamp: float64(time.Now().Unix()),
		Data: mustMarshal(map[string]interface{}{
			"status": "OK",
			"topic":  h.topic,
		}),
	}

	responseData, err := json.Marshal(ackResponse)
	if err != nil {
		h.logger.Printf("Error serializing ACK response: %v", err)
		return nil, fmt.Errorf("failed to serialize ACK response: %w", err)
	}

	return responseData, nil
}
