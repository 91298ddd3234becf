package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kagari-social/kagari/internal/infra/database/models"
)

func NewPostgres(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	return db, err
}

func MigratePostgres(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Actor{},
		&models.PublicKey{},
		&models.Note{},
		&models.Follow{},
		&models.Blocking{},
		&models.Muting{},
		&models.ThreadMuting{},
		&models.WordMuteRule{},
		&models.MutedNote{},
		&models.Antenna{},
		&models.AntennaNote{},
		&models.UserListMember{},
		&models.UserGroupMember{},
		&models.Notification{},
		&models.NoteUnread{},
		&models.Instance{},
		&models.Hashtag{},
		&models.Webhook{},
		&models.RelaySubscription{},
	)
}
