package processing

import (
	"sync"
	"time"

	customlog "github.com/forcemove/controller/pkg/log"
)

// InboundMessage is a raw message dequeued from the transport layer.
type InboundMessage struct {
	Topic       string
	Payload     []byte
	TimestampNs int64
}

// MessageProcessor consumes a dequeued message.
type MessageProcessor func(msg *InboundMessage) error

// Pool is a bounded worker pool that dequeues inbound messages and hands
// them to a processor. With a single worker it preserves arrival order,
// which is what the command ingestion path uses.
type Pool struct {
	name         string
	workerCount  int
	queueSize    int
	logger       customlog.Logger
	messageQueue chan *InboundMessage
	running      bool
	wg           sync.WaitGroup
	mu           sync.Mutex
	processor    MessageProcessor
	metrics      *PoolMetrics
}

// PoolMetrics tracks metrics for a pool
type PoolMetrics struct {
	ProcessedCount    int64
	ErrorCount        int64
	QueuedCount       int64
	DroppedCount      int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
	mu                sync.Mutex
}

// NewPool creates a new processing pool
func NewPool(name string, workerCount int, queueSize int, logger customlog.Logger) *Pool {
	return &Pool{
		name:         name,
		workerCount:  workerCount,
		queueSize:    queueSize,
		logger:       logger,
		messageQueue: make(chan *InboundMessage, queueSize),
		metrics:      &PoolMetrics{},
	}
}

// SetProcessor sets the message processor function
func (p *Pool) SetProcessor(processor MessageProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processor = processor
}

// Enqueue adds a message to the queue for processing. It never blocks:
// when the queue is full or the pool is stopped the message is dropped.
// Dropping is safe here because the consumer only cares about the latest
// command and stale values decay through the timeout rule.
func (p *Pool) Enqueue(msg *InboundMessage) bool {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running {
		p.logger.Warnf("%s pool not running, discarding message", p.name)
		p.recordDrop()
		return false
	}

	p.metrics.mu.Lock()
	p.metrics.QueuedCount++
	p.metrics.mu.Unlock()

	select {
	case p.messageQueue <- msg:
		return true
	default:
		p.logger.Warnf("%s pool queue is full, discarding message", p.name)
		p.recordDrop()
		return false
	}
}

// Start starts the pool workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the pool: the queue is closed, remaining messages are
// drained by the workers, and Stop blocks until every worker has exited.
func (p *Pool) Stop() {
	p.mu.Lock()

	if !p.running {
		p.mu.Unlock()
		return
	}

	p.running = false
	p.mu.Unlock() // Unlock before closing channel to avoid deadlock

	close(p.messageQueue)

	p.logger.Infof("Stopping %s pool", p.name)

	p.wg.Wait()
	p.logger.Infof("%s pool stopped", p.name)

	p.logMetrics()
}

// worker processes messages from the queue
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for msg := range p.messageQueue {
		p.mu.Lock()
		processor := p.processor
		p.mu.Unlock()

		if processor == nil {
			p.logger.Errorf("No message processor set for %s pool", p.name)
			continue
		}

		startTime := time.Now()
		err := processor(msg)
		processingTime := time.Since(startTime).Microseconds()

		p.metrics.mu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()

		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			p.metrics.ErrorCount++
		}
		p.metrics.mu.Unlock()

		if err != nil {
			p.logger.Errorf("Error processing message for topic '%s' in %s pool: %v", msg.Topic, p.name, err)
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

func (p *Pool) recordDrop() {
	p.metrics.mu.Lock()
	p.metrics.DroppedCount++
	p.metrics.mu.Unlock()
}

// GetMetrics returns a copy of the current metrics
func (p *Pool) GetMetrics() PoolMetrics {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	return PoolMetrics{
		ProcessedCount:    p.metrics.ProcessedCount,
		ErrorCount:        p.metrics.ErrorCount,
		QueuedCount:       p.metrics.QueuedCount,
		DroppedCount:      p.metrics.DroppedCount,
		LastProcessedTime: p.metrics.LastProcessedTime,
		ProcessingTimeAvg: p.metrics.ProcessingTimeAvg,
		ProcessingTimeMax: p.metrics.ProcessingTimeMax,
	}
}

// logMetrics logs the current metrics
func (p *Pool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *Pool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the message queue
func (p *Pool) GetQueueLength() int {
	return len(p.messageQueue)
}

// GetQueueCapacity returns the capacity of the message queue
func (p *Pool) GetQueueCapacity() int {
	return p.queueSize
}
