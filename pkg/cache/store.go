// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package cache is the client's local device-registration ledger: a small
// gorm-backed store so a second validation run against the same
// license/device pair skips a redundant RegisterDevice network round trip.
// Adapted from the reference server's pkg/stor (DBSetup, the build-tag
// dialector selection, and the register-event idempotency check), trimmed
// to the one entity a client needs to persist.
package cache

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store gives access to the device-registration repository. Kept as an
// interface, mirroring the reference server's Store, so callers can supply
// a fake in tests without a real database.
type Store interface {
	DeviceRegistrations() DeviceRegistrationRepository
}

type dbStore struct {
	db *gorm.DB
}

func (s *dbStore) DeviceRegistrations() DeviceRegistrationRepository {
	return (*deviceRegistrationStore)(s)
}

// Open initializes the local cache database. dsn follows the reference
// server's "dialect://connection-string" convention (e.g.
// "sqlite3://lcp-client.db").
func Open(dsn string) (Store, error) {
	dialect, cnx := dbFromURI(dsn)
	if dialect == "" {
		return nil, fmt.Errorf("incorrect database source name: %q", dsn)
	}
	if dialect == "mysql" && !strings.Contains(cnx, "parseTime") {
		return nil, fmt.Errorf("incomplete mysql database source name, parseTime required: %q", dsn)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(GormDialector(cnx), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("failed connecting to the cache database: %w", err)
	}

	if err := performDialectSpecific(db, dialect); err != nil {
		return nil, fmt.Errorf("failed performing dialect specific cache init: %w", err)
	}

	if err := db.AutoMigrate(&DeviceRegistration{}); err != nil {
		return nil, err
	}

	return &dbStore{db: db}, nil
}

func dbFromURI(uri string) (string, string) {
	parts := strings.SplitN(uri, "://", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func performDialectSpecific(db *gorm.DB, dialect string) error {
	switch dialect {
	case "sqlite3":
		if err := db.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			return err
		}
		return db.Exec("PRAGMA foreign_keys = ON").Error
	case "mysql", "postgres":
		return nil
	default:
		return fmt.Errorf("invalid dialect: %s", dialect)
	}
}
