// Package store archives finished games in Postgres. Live sessions are never stored.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/vulture-market/internal/session"
)

type GameResult struct {
	ID         uint         `gorm:"primaryKey"`
	SessionID  string       `gorm:"size:36;uniqueIndex"`
	Code       string       `gorm:"size:6"`
	Rounds     int
	FinishedAt time.Time    `gorm:"index"`
	Seats      []SeatResult `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

type SeatResult struct {
	ID       uint `gorm:"primaryKey"`
	GameID   uint `gorm:"index"`
	SeatID   int
	Name     string `gorm:"size:32"`
	IsAI     bool
	Level    int
	Score    int `gorm:"index"`
	Position int
}

// TopScore is one row of the all-time leaderboard.
type TopScore struct {
	Name       string    `json:"name"`
	IsAI       bool      `json:"is_ai"`
	Level      int       `json:"level,omitempty"`
	Score      int       `json:"score"`
	Position   int       `json:"position"`
	Code       string    `json:"code"`
	FinishedAt time.Time `json:"finished_at"`
}

type Store struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	db    *gorm.DB
	log   *zap.Logger
}

func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return &Store{pool: pool, sqlDB: sqlDB, db: db, log: log.Named("store")}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&GameResult{}, &SeatResult{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RecordGame implements session.Recorder.
func (s *Store) RecordGame(ctx context.Context, rec session.GameRecord) error {
	game := fromRecord(rec)
	if err := s.db.WithContext(ctx).Create(&game).Error; err != nil {
		return fmt.Errorf("record game %s: %w", rec.SessionID, err)
	}
	s.log.Info("game recorded", zap.String("session", rec.SessionID), zap.Uint("id", game.ID))
	return nil
}

func (s *Store) TopScores(ctx context.Context, limit int) ([]TopScore, error) {
	var rows []TopScore
	err := s.db.WithContext(ctx).
		Table("seat_results").
		Select("seat_results.name, seat_results.is_ai, seat_results.level, seat_results.score, " +
			"seat_results.position, game_results.code, game_results.finished_at").
		Joins("JOIN game_results ON game_results.id = seat_results.game_id").
		Order("seat_results.score DESC, game_results.finished_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	return rows, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	err := s.sqlDB.Close()
	s.pool.Close()
	return err
}

func fromRecord(rec session.GameRecord) GameResult {
	g := GameResult{
		SessionID:  rec.SessionID,
		Code:       rec.Code,
		Rounds:     rec.Rounds,
		FinishedAt: rec.FinishedAt.UTC(),
		Seats:      make([]SeatResult, 0, len(rec.Standings)),
	}
	for _, st := range rec.Standings {
		g.Seats = append(g.Seats, SeatResult{
			SeatID:   int(st.Seat),
			Name:     st.Name,
			IsAI:     st.IsAI,
			Level:    st.Level,
			Score:    st.Score,
			Position: st.Position,
		})
	}
	return g
}
