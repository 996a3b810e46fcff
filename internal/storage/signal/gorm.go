package signal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newthinker/signalbook/internal/core"
)

type signalModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	Symbol        string `gorm:"size:32;index"`
	Name          string `gorm:"size:128"`
	Timeframe     string `gorm:"size:16;index"`
	Strategy      string `gorm:"size:64;index"`
	Rating        string `gorm:"size:32"`
	RiskLevel     string `gorm:"size:32"`
	HoldingPeriod string `gorm:"size:32"`
	TotalScore    float64
	EntryPrice    float64
	TargetPrice   float64
	TargetPrice2  *float64
	TargetPrice3  *float64
	StopLoss      float64
	CreatedAt     time.Time `gorm:"index"`
}

func (signalModel) TableName() string {
	return "signals"
}

type actionModel struct {
	ID            string `gorm:"primaryKey;size:64"`
	SignalID      string `gorm:"size:64;index:idx_signal_seq,priority:1"`
	Seq           int    `gorm:"index:idx_signal_seq,priority:2"`
	Type          string `gorm:"size:16"`
	Reason        string `gorm:"type:text"`
	Timestamp     time.Time
	LegID         string `gorm:"size:64"`
	SizeChange    *float64
	RemainingSize *float64
}

func (actionModel) TableName() string {
	return "signal_actions"
}

// GormStore persists signals and their action logs in SQLite through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens (or creates) the SQLite database at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("sqlite path required"))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if err := db.AutoMigrate(&signalModel{}, &actionModel{}); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	// Appends read the log and write the next sequence number; one writer
	// keeps that read-modify-write atomic.
	sqlDB.SetMaxOpenConns(1)

	return &GormStore{db: db}, nil
}

// Close releases the underlying database handle.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save inserts a signal and its initial actions in one transaction.
func (g *GormStore) Save(ctx context.Context, signal core.Signal) (string, error) {
	signal, err := prepareSignal(signal)
	if err != nil {
		return "", err
	}

	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&signalModel{}).Where("id = ?", signal.ID).Count(&n).Error; err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
		if n > 0 {
			return core.WrapError(core.ErrInvalidSignal, fmt.Errorf("duplicate id %s", signal.ID))
		}

		row := toSignalModel(signal)
		if err := tx.Create(&row).Error; err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
		if len(signal.Actions) == 0 {
			return nil
		}
		rows := make([]actionModel, 0, len(signal.Actions))
		for i, a := range signal.Actions {
			rows = append(rows, toActionModel(signal.ID, i, a))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return signal.ID, nil
}

// AppendAction appends an action after validating it against the stored log.
func (g *GormStore) AppendAction(ctx context.Context, signalID string, action core.SignalAction) (*core.Signal, error) {
	var sig core.Signal
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row signalModel
		if err := tx.Where("id = ?", signalID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.ErrSignalNotFound
			}
			return core.WrapError(core.ErrStorageFailed, err)
		}

		log, err := loadActions(tx, signalID)
		if err != nil {
			return err
		}
		action, err := prepareAction(log, action)
		if err != nil {
			return err
		}

		am := toActionModel(signalID, len(log), action)
		if err := tx.Create(&am).Error; err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
		sig = fromSignalModel(row, append(log, action))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// GetByID loads a signal with its ordered action log.
func (g *GormStore) GetByID(ctx context.Context, id string) (*core.Signal, error) {
	db := g.db.WithContext(ctx)

	var row signalModel
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrSignalNotFound
		}
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	actions, err := loadActions(db, id)
	if err != nil {
		return nil, err
	}
	sig := fromSignalModel(row, actions)
	return &sig, nil
}

// List returns matching signals, newest first. State and result filters
// need the action log, so paging moves into Go when either is set.
func (g *GormStore) List(ctx context.Context, filter ListFilter) ([]core.Signal, error) {
	db := g.db.WithContext(ctx)
	q := g.query(db, filter).Order("created_at DESC")

	derived := filter.State != "" || filter.Result != ""
	if !derived {
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
	}

	var rows []signalModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	signals, err := g.attachActions(db, rows)
	if err != nil {
		return nil, err
	}
	if !derived {
		return signals, nil
	}

	matched := make([]core.Signal, 0, len(signals))
	for _, sig := range signals {
		if filter.Matches(sig) {
			matched = append(matched, sig)
		}
	}
	return page(matched, filter.Offset, filter.Limit), nil
}

// Count returns the number of matching signals.
func (g *GormStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	if filter.State != "" || filter.Result != "" {
		all := filter
		all.Limit, all.Offset = 0, 0
		signals, err := g.List(ctx, all)
		if err != nil {
			return 0, err
		}
		return len(signals), nil
	}

	var n int64
	if err := g.query(g.db.WithContext(ctx), filter).Count(&n).Error; err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	return int(n), nil
}

func (g *GormStore) query(db *gorm.DB, filter ListFilter) *gorm.DB {
	q := db.Model(&signalModel{})
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Strategy != "" {
		q = q.Where("strategy = ?", filter.Strategy)
	}
	if filter.Timeframe != "" {
		q = q.Where("timeframe = ?", filter.Timeframe)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at <= ?", filter.To.UTC())
	}
	return q
}

func (g *GormStore) attachActions(db *gorm.DB, rows []signalModel) ([]core.Signal, error) {
	signals := make([]core.Signal, 0, len(rows))
	if len(rows) == 0 {
		return signals, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var actionRows []actionModel
	if err := db.Where("signal_id IN ?", ids).Order("signal_id, seq").Find(&actionRows).Error; err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	bySignal := make(map[string][]core.SignalAction, len(rows))
	for _, a := range actionRows {
		bySignal[a.SignalID] = append(bySignal[a.SignalID], fromActionModel(a))
	}

	for _, r := range rows {
		signals = append(signals, fromSignalModel(r, bySignal[r.ID]))
	}
	return signals, nil
}

func loadActions(db *gorm.DB, signalID string) ([]core.SignalAction, error) {
	var rows []actionModel
	if err := db.Where("signal_id = ?", signalID).Order("seq").Find(&rows).Error; err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	actions := make([]core.SignalAction, 0, len(rows))
	for _, r := range rows {
		actions = append(actions, fromActionModel(r))
	}
	return actions, nil
}

func toSignalModel(s core.Signal) signalModel {
	return signalModel{
		ID:            s.ID,
		Symbol:        s.Symbol,
		Name:          s.Name,
		Timeframe:     s.Timeframe,
		Strategy:      s.Strategy,
		Rating:        s.Rating,
		RiskLevel:     s.RiskLevel,
		HoldingPeriod: s.HoldingPeriod,
		TotalScore:    s.TotalScore,
		EntryPrice:    s.EntryPrice,
		TargetPrice:   s.TargetPrice,
		TargetPrice2:  optPtr(s.TargetPrice2),
		TargetPrice3:  optPtr(s.TargetPrice3),
		StopLoss:      s.StopLoss,
		CreatedAt:     s.CreatedAt.UTC(),
	}
}

func fromSignalModel(m signalModel, actions []core.SignalAction) core.Signal {
	if actions == nil {
		actions = []core.SignalAction{}
	}
	return core.Signal{
		ID:            m.ID,
		Symbol:        m.Symbol,
		Name:          m.Name,
		Timeframe:     m.Timeframe,
		Strategy:      m.Strategy,
		Rating:        m.Rating,
		RiskLevel:     m.RiskLevel,
		HoldingPeriod: m.HoldingPeriod,
		TotalScore:    m.TotalScore,
		EntryPrice:    m.EntryPrice,
		TargetPrice:   m.TargetPrice,
		TargetPrice2:  ptrOpt(m.TargetPrice2),
		TargetPrice3:  ptrOpt(m.TargetPrice3),
		StopLoss:      m.StopLoss,
		CreatedAt:     m.CreatedAt,
		Actions:       actions,
	}
}

func toActionModel(signalID string, seq int, a core.SignalAction) actionModel {
	return actionModel{
		ID:            a.ID,
		SignalID:      signalID,
		Seq:           seq,
		Type:          string(a.Type),
		Reason:        a.Reason,
		Timestamp:     a.Timestamp.UTC(),
		LegID:         a.LegID,
		SizeChange:    optPtr(a.SizeChange),
		RemainingSize: optPtr(a.RemainingSize),
	}
}

func fromActionModel(m actionModel) core.SignalAction {
	return core.SignalAction{
		ID:            m.ID,
		Type:          core.ActionType(m.Type),
		Reason:        m.Reason,
		Timestamp:     m.Timestamp,
		LegID:         m.LegID,
		SizeChange:    ptrOpt(m.SizeChange),
		RemainingSize: ptrOpt(m.RemainingSize),
	}
}

func optPtr(o optional.Option[float64]) *float64 {
	if o.IsNone() {
		return nil
	}
	v := o.Unwrap()
	return &v
}

func ptrOpt(p *float64) optional.Option[float64] {
	if p == nil {
		return optional.None[float64]()
	}
	return optional.Some(*p)
}
