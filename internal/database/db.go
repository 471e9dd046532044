package database

import (
	"time"

	"cmsbackend/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config(log))
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}

// Config returns the gorm settings shared by every dialect
func Config(log *logrus.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Migrate creates or updates every table, including the unique indexes the
// permission seeder relies on for conflict-ignoring inserts
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.AllModels()...)
}
