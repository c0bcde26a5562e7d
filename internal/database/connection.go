package database

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/models"
)

// SlowQueryThreshold is the query duration gorm reports as slow
const SlowQueryThreshold = 200 * time.Millisecond

// DB is the journal database
type DB struct {
	*gorm.DB
}

type connectOptions struct {
	logger *zap.Logger
}

// Option tunes Connect
type Option func(*connectOptions)

// WithLogger routes gorm warnings, errors and slow queries to logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *connectOptions) { o.logger = logger }
}

// zapWriter feeds gorm's formatted log lines into zap
type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.sugar.Warnf(format, args...)
}

// Connect opens the SQLite journal described by cfg
func Connect(cfg config.DatabaseConfig, opts ...Option) (*DB, error) {
	o := connectOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	dbPath, err := cfg.ResolvePath()
	if err != nil {
		return nil, err
	}

	gl := gormlogger.New(zapWriter{sugar: o.logger.Named("gorm").Sugar()}, gormlogger.Config{
		SlowThreshold:             SlowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dbPath)
	}
	o.logger.Debug("database opened", zap.String("path", dbPath))

	return &DB{db}, nil
}

// Initialize migrates the journal schema
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.SessionEvent{}, &models.ErrorLog{}); err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
