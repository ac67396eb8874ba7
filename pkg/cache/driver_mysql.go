//go:build MYSQL

// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package cache

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// GormDialector selects the MySQL driver.
func GormDialector(cnx string) gorm.Dialector {
	return mysql.Open(cnx)
}
