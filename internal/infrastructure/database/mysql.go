// Package database wires the relational store (MySQL via gorm), the
// single shared mutable state of the system (spec.md §5).
package database

import (
	"fmt"
	"log"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/config"
	"github.com/EmilynnJ/ccodeseer/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to MySQL, configures the connection pool, and runs the
// auto-migration for every entity table in spec.md §3.
func Open(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("[database] failed to connect to mysql: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("[database] failed to get underlying *sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(
		&model.User{},
		&model.ClientProfile{},
		&model.ReaderProfile{},
		&model.Session{},
		&model.Message{},
		&model.Transaction{},
		&model.Review{},
		&model.Notification{},
		&model.Payout{},
		&model.OutboxMessage{},
	)
	if err != nil {
		log.Fatalf("[database] auto-migrate failed: %v", err)
	}

	log.Println("[database] mysql connected")
	return db
}
