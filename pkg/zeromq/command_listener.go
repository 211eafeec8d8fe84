package zeromq

import (
	"log"
	"time"

	"github.com/forcemove/controller/pkg/processing"
	zmq "github.com/pebbe/zmq4"
)

// CommandListener subscribes to the velocity command topic and feeds raw
// twist payloads into the command ingestion pool. It owns a dedicated
// receive goroutine with an explicit stop flag; Stop closes the socket to
// interrupt a blocking receive.
type CommandListener struct {
	socket   *zmq.Socket
	pool     *processing.Pool
	registry *processing.TopicRegistry
	topic    string
	running  bool
}

// NewCommandListener creates a new ZeroMQ command listener subscribed to
// the given topic.
func NewCommandListener(ctx *zmq.Context, topic string, pool *processing.Pool, registry *processing.TopicRegistry) (*CommandListener, error) {
	socket, err := ctx.NewSocket(zmq.SUB)
	if err != nil {
		return nil, err
	}

	if err := socket.SetSubscribe(topic); err != nil {
		socket.Close()
		return nil, err
	}

	return &CommandListener{
		socket:   socket,
		pool:     pool,
		registry: registry,
		topic:    topic,
	}, nil
}

// Start binds the listener and begins receiving commands
func (l *CommandListener) Start(address string) error {
	if err := l.socket.Bind(address); err != nil {
		return err
	}

	l.running = true
	go l.receiveLoop()

	log.Printf("Command listener started on %s (topic '%s')", address, l.topic)
	return nil
}

// Stop stops the command listener
func (l *CommandListener) Stop() {
	l.running = false
	l.socket.Close()
}

// receiveLoop continuously receives command messages. Messages arrive as
// two frames, topic then payload; a single-frame message is treated as a
// bare payload on the subscribed topic.
func (l *CommandListener) receiveLoop() {
	for l.running {
		frames, err := l.socket.RecvMessageBytes(0)
		if err != nil {
			if l.running {
				log.Printf("Error receiving command message: %v", err)
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}

		topic := l.topic
		var payload []byte
		switch len(frames) {
		case 1:
			payload = frames[0]
		case 2:
			topic = string(frames[0])
			payload = frames[1]
		default:
			log.Printf("Ignoring command message with %d frames", len(frames))
			continue
		}

		now := time.Now().UnixNano()
		l.registry.UpdateTopicStats(topic, now)

		l.pool.Enqueue(&processing.InboundMessage{
			Topic:       topic,
			Payload:     payload,
			TimestampNs: now,
		})
	}
}
