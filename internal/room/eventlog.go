package room

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	eventBufferSize    = 1024
	maxEventsPerSec    = 10000
	maxEventsPerRoom   = 100
	batchFlushSize     = 64
	batchFlushInterval = 100 * time.Millisecond
	limiterCleanup     = 5 * time.Minute
)

// EventType classifies an audit entry.
type EventType string

const (
	EventRoomCreated EventType = "room_created"
	EventRoomClosed  EventType = "room_closed"
	EventPlayerJoin  EventType = "player_join"
	EventPlayerLeave EventType = "player_leave"
	EventPlayerKick  EventType = "player_kick"
	EventKill        EventType = "kill"
)

// Event is one audit record, written as a JSON line.
type Event struct {
	Sequence    uint64         `json:"seq"`
	Type        EventType      `json:"type"`
	RoomID      string         `json:"room_id"`
	PlayerID    uint64         `json:"player_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	TimestampMs int64          `json:"ts_ms"`
}

// EventLog is a bounded, rate-limited audit trail of room lifecycle
// events: circular buffer, async batched writer, per-room rate limiters
// with periodic cleanup. Emit never blocks; under pressure the oldest
// entries are dropped rather than stalling a room task. A nil *EventLog
// is a no-op sink.
type EventLog struct {
	buffer    [eventBufferSize]Event
	writeHead atomic.Uint64
	readHead  atomic.Uint64

	globalLimiter *rate.Limiter
	roomLimiters  sync.Map // map[string]*roomLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type roomLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewEventLog creates an idle event log; call Start to begin writing.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(maxEventsPerSec, maxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the output file (empty path keeps counters only) and spins
// up the writer and cleanup goroutines.
func (el *EventLog) Start(filePath string) error {
	if el == nil || el.running.Load() {
		return nil
	}
	el.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes and shuts the log down.
func (el *EventLog) Stop() {
	if el == nil {
		return
	}
	el.stopOnce.Do(func() {
		if !el.running.Load() {
			return
		}
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit records one event. Returns false when rate limited, stopped or
// dropped under buffer pressure.
func (el *EventLog) Emit(eventType EventType, roomID string, playerID uint64, payload map[string]any) bool {
	if el == nil || !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}
	if roomID != "" && !el.roomLimiter(roomID).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	head := el.writeHead.Add(1)
	tail := el.readHead.Load()
	if head-tail >= eventBufferSize {
		// Rolling window: drop the oldest rather than block a room task.
		el.readHead.Add(1)
		el.droppedCount.Add(1)
	}

	el.buffer[head%eventBufferSize] = Event{
		Sequence:    head,
		Type:        eventType,
		RoomID:      roomID,
		PlayerID:    playerID,
		Payload:     payload,
		TimestampMs: time.Now().UnixMilli(),
	}
	el.totalCount.Add(1)
	return true
}

func (el *EventLog) roomLimiter(roomID string) *rate.Limiter {
	if entry, ok := el.roomLimiters.Load(roomID); ok {
		e := entry.(*roomLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}
	entry := &roomLimiterEntry{
		limiter:  rate.NewLimiter(maxEventsPerRoom, maxEventsPerRoom/10),
		lastUsed: time.Now(),
	}
	actual, _ := el.roomLimiters.LoadOrStore(roomID, entry)
	return actual.(*roomLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)
	for {
		select {
		case <-el.stopChan:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
			return
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(limiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterCleanup)
			el.roomLimiters.Range(func(key, value any) bool {
				if value.(*roomLimiterEntry).lastUsed.Before(cutoff) {
					el.roomLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	head := el.writeHead.Load()
	tail := el.readHead.Load()

	for i := tail; i < head && len(batch) < batchFlushSize; i++ {
		batch = append(batch, el.buffer[(i+1)%eventBufferSize])
	}
	if len(batch) > 0 {
		el.readHead.Add(uint64(len(batch)))
	}
	return batch
}

func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}
	for i := range batch {
		data, err := json.Marshal(&batch[i])
		if err != nil {
			continue
		}
		el.file.Write(data)
		el.file.Write([]byte("\n"))
	}
}

// Stats returns counters for monitoring.
func (el *EventLog) Stats() map[string]uint64 {
	if el == nil {
		return nil
	}
	head := el.writeHead.Load()
	tail := el.readHead.Load()
	return map[string]uint64{
		"total":   el.totalCount.Load(),
		"dropped": el.droppedCount.Load(),
		"pending": head - tail,
	}
}
