package recorder

import (
	"context"
	"time"

	"main/internal/bus"
	"main/internal/channel"
	"main/internal/model"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"
)

const defaultQueueSize = 4096

// Record is the persisted form of one received envelope.
type Record struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	EventType  string    `gorm:"size:64;index"`
	Payload    []byte    `gorm:"type:bytea"`
	ReceivedAt time.Time `gorm:"index"`
}

func (Record) TableName() string {
	return "channel_events"
}

// Recorder persists every envelope the channel dispatches. A bounded queue
// decouples it from dispatch; when the database falls behind, envelopes are
// dropped rather than stalling the read loop.
type Recorder struct {
	db    *gorm.DB
	queue *bus.Queue
}

// New migrates the event table and builds a recorder.
func New(db *gorm.DB, queueSize int) (*Recorder, error) {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Wrap(err, "migrate channel_events")
	}
	return &Recorder{
		db:    db,
		queue: bus.NewQueue(queueSize),
	}, nil
}

// Attach subscribes the recorder to every envelope on the channel and
// returns the remover.
func (r *Recorder) Attach(ch *channel.Channel) (unsubscribe func()) {
	return ch.Subscribe(channel.Wildcard, func(ev model.Envelope) {
		if err := r.queue.TryPublish(ev); err != nil {
			logs.Warnf("recorder dropping %s event: %v", ev.Type, err)
		}
	})
}

// Run drains the queue into the database until ctx is done.
func (r *Recorder) Run(ctx context.Context) {
	r.queue.Run(ctx, r.store)
}

// Close stops the queue from accepting new envelopes.
func (r *Recorder) Close() {
	r.queue.Close()
}

func (r *Recorder) store(ev model.Envelope) {
	record := Record{
		EventType:  ev.Type,
		Payload:    []byte(ev.Data),
		ReceivedAt: time.Now().UTC(),
	}
	if err := r.db.Create(&record).Error; err != nil {
		logs.Errorf("persist %s event: %v", ev.Type, err)
	}
}
