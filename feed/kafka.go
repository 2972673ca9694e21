package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rithiksai/scribble-game/game"
	"github.com/rithiksai/scribble-game/logger"
	"github.com/segmentio/kafka-go"
)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaFeed publishes finished rounds to a topic, keyed by room id. Publish
// never blocks: results are queued and written from a background goroutine,
// and dropped when the queue is full.
type KafkaFeed struct {
	writer    messageWriter
	queue     chan game.RoundResult
	stopped   chan struct{}
	locker    sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewKafkaFeed(brokers []string, topic string) *KafkaFeed {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  true,
		BatchSize:              1,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warningf("[feed] %d round results not delivered: %v", len(messages), err)
			}
		},
	}
	return newKafkaFeed(writer, queueSize)
}

func newKafkaFeed(writer messageWriter, size int) *KafkaFeed {
	f := &KafkaFeed{
		writer:  writer,
		queue:   make(chan game.RoundResult, size),
		stopped: make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *KafkaFeed) Publish(result game.RoundResult) {
	f.locker.RLock()
	defer f.locker.RUnlock()

	if f.closed {
		return
	}
	select {
	case f.queue <- result:
	default:
		logger.Warningf("[feed] queue full, dropping result of room %s", result.RoomId)
	}
}

func (f *KafkaFeed) run() {
	defer close(f.stopped)

	for result := range f.queue {
		value, err := json.Marshal(result)
		if err != nil {
			logger.Criticalf("[feed] encode result of room %s: %v", result.RoomId, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err = f.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(result.RoomId),
			Value: value,
			Time:  result.EndedAt,
		})
		cancel()
		if err != nil {
			logger.Warningf("[feed] write result of room %s: %v", result.RoomId, err)
		}
	}
}

// Close flushes queued results and closes the writer.
func (f *KafkaFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.locker.Lock()
		f.closed = true
		close(f.queue)
		f.locker.Unlock()

		<-f.stopped
		err = f.writer.Close()
	})
	return err
}
