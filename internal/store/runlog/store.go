// Package runlog 把每次抽取运行持久化到 SQLite，供 /runs/:id 查询。
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stratex/internal/pipeline"
	"stratex/internal/types"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound 指定的运行不存在。
var ErrNotFound = errors.New("runlog: run not found")

type runModel struct {
	ID          int64          `gorm:"column:id;primaryKey"`
	RunID       string         `gorm:"column:run_id;uniqueIndex"`
	URL         string         `gorm:"column:url"`
	Manual      bool           `gorm:"column:manual"`
	Source      string         `gorm:"column:source"`
	Status      string         `gorm:"column:status;index"`
	ErrorKind   string         `gorm:"column:error_kind"`
	Reason      string         `gorm:"column:reason"`
	Confidence  *int           `gorm:"column:confidence"`
	Methodology string         `gorm:"column:methodology"`
	VideoTitle  string         `gorm:"column:video_title"`
	Strategy    datatypes.JSON `gorm:"column:strategy_json"`
	Validation  datatypes.JSON `gorm:"column:validation_json"`
	Debug       datatypes.JSON `gorm:"column:debug_json"`
	DurationMs  int64          `gorm:"column:duration_ms"`
	StartedAt   int64          `gorm:"column:started_at;index"`
	CreatedAt   int64          `gorm:"column:created_at"`
}

func (runModel) TableName() string { return "extraction_runs" }

// Record 是查询返回的运行记录。
type Record struct {
	RunID       string                     `json:"runId"`
	URL         string                     `json:"url,omitempty"`
	Manual      bool                       `json:"manual"`
	Source      string                     `json:"source,omitempty"`
	Status      types.ImportStatus         `json:"status"`
	ErrorKind   types.ErrorKind            `json:"errorKind,omitempty"`
	Reason      string                     `json:"reason"`
	Confidence  *int                       `json:"confidence,omitempty"`
	Methodology string                     `json:"methodology,omitempty"`
	VideoTitle  string                     `json:"videoTitle,omitempty"`
	Strategy    *types.ExtractedStrategy   `json:"strategy"`
	Validation  *types.ActionabilityResult `json:"validation"`
	Debug       *types.DebugInfo           `json:"debug"`
	DurationMs  int64                      `json:"durationMs"`
	StartedAt   time.Time                  `json:"startedAt"`
}

type Store struct {
	db *gorm.DB
}

// Open 打开（必要时创建）运行日志数据库。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("runlog: path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	return open(sqlite.Open(dsn))
}

func open(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Observe 实现 pipeline.Observer。
func (s *Store) Observe(ctx context.Context, rec pipeline.RunRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	m, err := newRunModel(rec)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// Get 按 runId 查询。
func (s *Store) Get(ctx context.Context, runID string) (Record, error) {
	if s == nil || s.db == nil {
		return Record{}, fmt.Errorf("runlog 未初始化")
	}
	var m runModel
	err := s.db.WithContext(ctx).Where("run_id = ?", strings.TrimSpace(runID)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return m.toRecord()
}

// Recent 返回最近的运行，按开始时间倒序。
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("runlog 未初始化")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var models []runModel
	if err := s.db.WithContext(ctx).Order("started_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(models))
	for _, m := range models {
		rec, err := m.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func newRunModel(rec pipeline.RunRecord) (runModel, error) {
	resp := rec.Response
	m := runModel{
		RunID:      resp.RunID,
		URL:        strings.TrimSpace(rec.Request.URL),
		Manual:     strings.TrimSpace(rec.Request.Transcript) != "",
		Source:     resp.Source,
		Status:     string(resp.Status),
		ErrorKind:  string(rec.Kind),
		Reason:     resp.Reason,
		Confidence: resp.Confidence,
		VideoTitle: resp.VideoTitle,
		DurationMs: rec.Duration.Milliseconds(),
		StartedAt:  rec.StartedAt.UnixMilli(),
		CreatedAt:  time.Now().UnixMilli(),
	}
	if resp.Methodology != nil {
		m.Methodology = string(resp.Methodology.Methodology)
	}
	var err error
	if m.Strategy, err = marshalJSON(resp.Strategy); err != nil {
		return runModel{}, err
	}
	if m.Validation, err = marshalJSON(resp.Validation); err != nil {
		return runModel{}, err
	}
	if m.Debug, err = marshalJSON(resp.Debug); err != nil {
		return runModel{}, err
	}
	return m, nil
}

func (m runModel) toRecord() (Record, error) {
	rec := Record{
		RunID:       m.RunID,
		URL:         m.URL,
		Manual:      m.Manual,
		Source:      m.Source,
		Status:      types.ImportStatus(m.Status),
		ErrorKind:   types.ErrorKind(m.ErrorKind),
		Reason:      m.Reason,
		Confidence:  m.Confidence,
		Methodology: m.Methodology,
		VideoTitle:  m.VideoTitle,
		DurationMs:  m.DurationMs,
		StartedAt:   time.UnixMilli(m.StartedAt),
	}
	if err := unmarshalJSON(m.Strategy, &rec.Strategy); err != nil {
		return Record{}, fmt.Errorf("decode strategy run=%s: %w", m.RunID, err)
	}
	if err := unmarshalJSON(m.Validation, &rec.Validation); err != nil {
		return Record{}, fmt.Errorf("decode validation run=%s: %w", m.RunID, err)
	}
	if err := unmarshalJSON(m.Debug, &rec.Debug); err != nil {
		return Record{}, fmt.Errorf("decode debug run=%s: %w", m.RunID, err)
	}
	return rec, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unmarshalJSON(raw datatypes.JSON, dest any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

var _ pipeline.Observer = (*Store)(nil)
