package ratestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

type rateLimitRow struct {
	IP             string `gorm:"primaryKey;column:ip;size:64"`
	LastSubmission int64  `gorm:"column:last_submission;not null;index"`
}

func (rateLimitRow) TableName() string { return "rate_limits" }

// SQL stores the table in a relational database. The cooldown check and the
// write are a single conditional upsert, so concurrent writers in different
// processes cannot both pass.
type SQL struct {
	db *gorm.DB
}

// OpenSQL connects to postgres for postgres:// or postgresql:// DSNs and
// treats anything else as a SQLite file path.
func OpenSQL(dsn string) (*SQL, error) {
	var dialector gorm.Dialector
	sqlite3 := false
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		conn, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: path, Conn: conn}
		sqlite3 = true
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlite3 {
		if sqlDB, err := db.DB(); err == nil {
			// SQLite allows one writer; queue inside database/sql instead of SQLITE_BUSY.
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := db.AutoMigrate(&rateLimitRow{}); err != nil {
		return nil, fmt.Errorf("migrate rate_limits: %w", err)
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Allow(ctx context.Context, key string, now time.Time, window time.Duration) (Decision, error) {
	var d Decision
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev rateLimitRow
		err := tx.Where("ip = ?", key).Take(&prev).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		cutoff := now.Add(-window).Unix()
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip"}},
			DoUpdates: clause.Assignments(map[string]any{"last_submission": now.Unix()}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Lte{Column: clause.Column{Table: "rate_limits", Name: "last_submission"}, Value: cutoff},
			}},
		}).Create(&rateLimitRow{IP: key, LastSubmission: now.Unix()})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			d = Decision{Allowed: true}
			if found {
				d.Last = time.Unix(prev.LastSubmission, 0)
			}
			return nil
		}
		d = decide(prev.LastSubmission, true, now, window)
		d.Allowed = false
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit upsert %s: %w", key, err)
	}
	return d, nil
}

func (s *SQL) Prune(ctx context.Context, before time.Time) (int, error) {
	res := s.db.WithContext(ctx).Where("last_submission < ?", before.Unix()).Delete(&rateLimitRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune rate_limits: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
