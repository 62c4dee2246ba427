package model

import (
	"gorm.io/gorm"
)

// AutoMigrate 迁移指定模型的表结构
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {
	case "UploadRecord":
		return db.AutoMigrate(&UploadRecord{})
	}
	return nil
}

// AutoMigrateAll 迁移全部表结构
func AutoMigrateAll(db *gorm.DB) error {
	return AutoMigrate(db, "UploadRecord")
}
