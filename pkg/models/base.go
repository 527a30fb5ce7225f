package models

import (
	"gorm.io/gorm"
)

// MigrationFunc migrates all persistent tables of the tool core.
func MigrationFunc(conn *gorm.DB) error {
	// use conn.Debug().AutoMigrate(...) to enable debugging
	return conn.AutoMigrate(
		&RegistryEntry{},
		&UserInstall{},
		&CallLog{},
	)
}
