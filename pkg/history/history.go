// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package history persists completed link test results to a local
// SQLite database so runs can be listed, inspected, and exported later.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Thermoquad/pyrometer/pkg/linktest"
)

// SessionRecord is one completed (or stopped/failed) test run.
type SessionRecord struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Mode          string    `json:"mode" gorm:"type:varchar(16);not null"`
	Transport     string    `json:"transport" gorm:"type:varchar(128)"`
	Status        string    `json:"status" gorm:"type:varchar(16);not null"`
	FailureReason string    `json:"failure_reason,omitempty" gorm:"type:text"`
	StartedAt     time.Time `json:"started_at" gorm:"not null"`
	ElapsedMs     int64     `json:"elapsed_ms" gorm:"column:elapsed_ms;not null"`

	PacketSize int     `json:"packet_size" gorm:"column:packet_size"`
	Rate       int     `json:"rate"`
	DurationS  float64 `json:"duration_s" gorm:"column:duration_s"`

	PacketsSent      uint64 `json:"packets_sent" gorm:"column:packets_sent"`
	PacketsAcked     uint64 `json:"packets_acked" gorm:"column:packets_acked"`
	PacketsReceived  uint64 `json:"packets_received" gorm:"column:packets_received"`
	PacketsLost      uint64 `json:"packets_lost" gorm:"column:packets_lost"`
	Retransmits      uint64 `json:"retransmits"`
	FramingErrors    uint64 `json:"framing_errors" gorm:"column:framing_errors"`
	BytesTransferred uint64 `json:"bytes_transferred" gorm:"column:bytes_transferred"`

	MeanLatencyMs   float64 `json:"mean_latency_ms" gorm:"column:mean_latency_ms"`
	MedianLatencyMs float64 `json:"median_latency_ms" gorm:"column:median_latency_ms"`
	StdDevLatencyMs float64 `json:"stddev_latency_ms" gorm:"column:stddev_latency_ms"`
	P95LatencyMs    float64 `json:"p95_latency_ms" gorm:"column:p95_latency_ms"`
	P99LatencyMs    float64 `json:"p99_latency_ms" gorm:"column:p99_latency_ms"`
	JitterMs        float64 `json:"jitter_ms" gorm:"column:jitter_ms"`
	LossRate        float64 `json:"loss_rate" gorm:"column:loss_rate"`
	AvgBandwidthBps float64 `json:"avg_bandwidth_bps" gorm:"column:avg_bandwidth_bps"`
	PeakBandwidthBps float64 `json:"peak_bandwidth_bps" gorm:"column:peak_bandwidth_bps"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (SessionRecord) TableName() string {
	return "sessions"
}

// SampleRecord is one metric sample retained from the session window.
type SampleRecord struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	SessionID uint    `json:"session_id" gorm:"column:session_id;not null;index"`
	Kind      string  `json:"kind" gorm:"type:varchar(16);not null"`
	Value     float64 `json:"value"`
	Sequence  uint16  `json:"sequence"`
	TimeMs    int64   `json:"time_ms" gorm:"column:time_ms;not null"`
}

func (SampleRecord) TableName() string {
	return "samples"
}

// Session bundles a record with its retained samples.
type Session struct {
	Record  SessionRecord  `json:"record"`
	Samples []SampleRecord `json:"samples"`
}

// Store wraps the database handle.
type Store struct {
	db *gorm.DB
}

// DefaultPath returns the standard database location under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".pyrometer", "history.db"), nil
}

// Open opens (creating if needed) the history database at path and
// migrates the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := db.AutoMigrate(&SessionRecord{}, &SampleRecord{}); err != nil {
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveResult records a finished session along with its sample window.
// It returns the stored record's ID.
func (s *Store) SaveResult(cfg linktest.Config, summary linktest.Summary, window []linktest.Sample) (uint, error) {
	record := SessionRecord{
		Mode:          cfg.Mode.String(),
		Transport:     describeTransport(cfg),
		Status:        summary.Status.String(),
		FailureReason: summary.FailureReason,
		StartedAt:     summary.StartedAt,
		ElapsedMs:     summary.Elapsed.Milliseconds(),

		PacketSize: cfg.PacketSize,
		Rate:       cfg.Rate,
		DurationS:  cfg.Duration.Seconds(),

		PacketsSent:      summary.PacketsSent,
		PacketsAcked:     summary.PacketsAcked,
		PacketsReceived:  summary.PacketsReceived,
		PacketsLost:      summary.PacketsLost,
		Retransmits:      summary.Retransmits,
		FramingErrors:    summary.FramingErrors,
		BytesTransferred: summary.BytesTransferred,

		MeanLatencyMs:    summary.MeanLatencyMs,
		MedianLatencyMs:  summary.MedianLatencyMs,
		StdDevLatencyMs:  summary.StdDevLatencyMs,
		P95LatencyMs:     summary.P95LatencyMs,
		P99LatencyMs:     summary.P99LatencyMs,
		JitterMs:         summary.JitterMs,
		LossRate:         summary.LossRate,
		AvgBandwidthBps:  summary.AvgBandwidthBps,
		PeakBandwidthBps: summary.PeakBandwidthBps,

		CreatedAt: time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if len(window) == 0 {
			return nil
		}
		samples := make([]SampleRecord, 0, len(window))
		for _, sm := range window {
			samples = append(samples, SampleRecord{
				SessionID: record.ID,
				Kind:      sm.Kind.String(),
				Value:     sm.Value,
				Sequence:  sm.Sequence,
				TimeMs:    sm.Time.UnixMilli(),
			})
		}
		return tx.CreateInBatches(samples, 256).Error
	})
	if err != nil {
		return 0, fmt.Errorf("saving session: %w", err)
	}
	return record.ID, nil
}

// ListSessions returns the most recent sessions, newest first. A limit
// of zero or less returns everything.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	var records []SessionRecord
	q := s.db.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return records, nil
}

// GetSession loads one session and its samples.
func (s *Store) GetSession(id uint) (*Session, error) {
	var record SessionRecord
	if err := s.db.First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("session %d not found", id)
		}
		return nil, fmt.Errorf("loading session %d: %w", id, err)
	}

	var samples []SampleRecord
	if err := s.db.Where("session_id = ?", id).Order("id ASC").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("loading samples for session %d: %w", id, err)
	}

	return &Session{Record: record, Samples: samples}, nil
}

// DeleteSession removes a session and its samples.
func (s *Store) DeleteSession(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&SessionRecord{}, id)
		if result.Error != nil {
			return fmt.Errorf("deleting session %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("session %d not found", id)
		}
		return tx.Where("session_id = ?", id).Delete(&SampleRecord{}).Error
	})
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func describeTransport(cfg linktest.Config) string {
	if cfg.Transport.URL != "" {
		return cfg.Transport.URL
	}
	if cfg.Transport.Device != "" {
		return fmt.Sprintf("%s @ %d baud", cfg.Transport.Device, cfg.Transport.BaudRate)
	}
	return "loopback"
}
