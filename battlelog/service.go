// Package battlelog persists battle journal entries.
package battlelog

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/arena/game/combat"
	"github.com/kasuganosora/arena/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const batchSize = 100

// Options tunes a Service. Zero values use the defaults.
type Options struct {
	Buffer        int           // queued entries; 1024
	FlushInterval time.Duration // 2s
}

// Service writes journal entries of one battle asynchronously in batches.
// It implements combat.Journal.
type Service struct {
	db       *gorm.DB
	battleID string
	seq      atomic.Int64
	ch       chan *model.BattleLogEntry
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	interval time.Duration
	logger   *zap.Logger
}

// New creates a Service for a new battle id and starts its background
// worker.
func New(db *gorm.DB, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	svc := &Service{
		db:       db,
		battleID: uuid.NewString(),
		ch:       make(chan *model.BattleLogEntry, opts.Buffer),
		stopCh:   make(chan struct{}),
		interval: opts.FlushInterval,
		logger:   logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// BattleID identifies the rows written by this service.
func (svc *Service) BattleID() string { return svc.battleID }

// Record enqueues an entry for async DB write. It never blocks; entries
// are dropped with a warning when the queue is full.
func (svc *Service) Record(e combat.JournalEntry) {
	var fields datatypes.JSON
	if len(e.Fields) > 0 {
		raw, err := json.Marshal(e.Fields)
		if err != nil {
			svc.logger.Warn("battle log fields not serialisable", zap.String("kind", e.Kind), zap.Error(err))
		} else {
			fields = datatypes.JSON(raw)
		}
	}
	record := &model.BattleLogEntry{
		BattleID:  svc.battleID,
		Seq:       svc.seq.Add(1),
		Turn:      e.Turn,
		Character: e.Character,
		Kind:      e.Kind,
		Message:   e.Message,
		Fields:    fields,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("battle log channel full, dropping entry",
			zap.String("kind", e.Kind), zap.Int64("seq", record.Seq))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished or ctx is done.
func (svc *Service) Stop(ctx context.Context) error {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summarize stores the battle outcome alongside its entries. Call it
// after Stop so the entry count is final.
func (svc *Service) Summarize(winner string, draw bool, turns int) error {
	var n int64
	if err := svc.db.Model(&model.BattleLogEntry{}).Where("battle_id = ?", svc.battleID).Count(&n).Error; err != nil {
		return err
	}
	return svc.db.Create(&model.BattleSummary{
		BattleID: svc.battleID, Winner: winner, Draw: draw, Turns: turns, Entries: n,
	}).Error
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	batch := make([]*model.BattleLogEntry, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("battle log batch write failed", zap.Error(err), zap.Int("entries", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Entries returns the stored entries of a battle in record order.
func Entries(db *gorm.DB, battleID string) ([]model.BattleLogEntry, error) {
	var out []model.BattleLogEntry
	err := db.Where("battle_id = ?", battleID).Order("seq").Find(&out).Error
	return out, err
}
