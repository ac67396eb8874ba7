//go:build !MYSQL && !PGSQL

// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package cache

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// GormDialector selects the sqlite driver, the default build.
func GormDialector(cnx string) gorm.Dialector {
	return sqlite.Open(cnx)
}
