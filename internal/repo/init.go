package repo

import (
	"github.com/KNICEX/price-alert/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Alert{})
}
