package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"

	// DefaultSQLitePath is used when no DSN is configured for sqlite
	DefaultSQLitePath = "prompt-architect.db"

	openTimeout = 30 * time.Second
)

var (
	ErrNotFound    = errors.New("database: not found")
	ErrNotStarted  = errors.New("database: not started")
	ErrUnknownType = errors.New("database: unknown db type")
)

// Store wraps a gorm connection opened with the configured driver
type Store struct {
	dbType string
	open   gorm.Dialector
	db     *gorm.DB
	logger gormlogger.Interface
}

// New prepares a store. Nothing is opened until Start.
func New(dbType, dsn string, debug bool) (*Store, error) {
	var open gorm.Dialector
	switch dbType {
	case TypePostgres:
		open = postgres.Open(dsn)
	case TypeMySQL:
		open = mysql.Open(dsn)
	case TypeSQLite, "":
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		dbType = TypeSQLite
		open = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, dbType)
	}
	l := gormlogger.Default.LogMode(gormlogger.Silent)
	if debug {
		l = gormlogger.Default.LogMode(gormlogger.Warn)
	}
	return &Store{
		dbType: dbType,
		open:   open,
		logger: l,
	}, nil
}

// Type returns the driver name
func (s *Store) Type() string {
	return s.dbType
}

// Start opens the connection, giving up after 30 seconds
func (s *Store) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	type result struct {
		db  *gorm.DB
		err error
	}
	resC := make(chan result, 1)
	go func() {
		db, err := gorm.Open(s.open, &gorm.Config{
			Logger: s.logger,
		})
		resC <- result{db: db, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("database: timed out opening database: %w", ctx.Err())
		}
		return ctx.Err()
	case res := <-resC:
		if res.err != nil {
			return fmt.Errorf("database: failed to open database: %w", res.err)
		}
		s.db = res.db
	}
	return nil
}

// Migrate creates or updates the tables
func (s *Store) Migrate() error {
	if s.db == nil {
		return ErrNotStarted
	}
	if err := s.db.AutoMigrate(&Setting{}); err != nil {
		return fmt.Errorf("database: failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks the underlying connection
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrNotStarted
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database: failed to get connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database: failed to get connection: %w", err)
	}
	return sqlDB.Close()
}
