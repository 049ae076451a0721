package main

import (
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fieldops/internal/config"
	"fieldops/internal/db"
	"fieldops/internal/logging"
	"fieldops/internal/model"
)

const (
	defaultAdminEmail    = "admin@jendie.com"
	defaultAdminPassword = "admin123"
)

func main() {
	clean := flag.Bool("clean", false, "delete all non-admin data before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("starting seed script")

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.Migrate(gormDB, false); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	if *clean {
		if err := cleanData(gormDB); err != nil {
			log.Fatal().Err(err).Msg("clean failed")
		}
		log.Info().Msg("non-admin data deleted")
	}

	email := getEnv("SEED_ADMIN_EMAIL", defaultAdminEmail)
	created, err := ensureAdmin(gormDB, email, getEnv("SEED_ADMIN_PASSWORD", defaultAdminPassword))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin")
	}
	if created {
		log.Info().Str("email", email).Msg("admin user created")
	} else {
		log.Info().Str("email", email).Msg("admin user already exists")
	}
}

// cleanData removes everything except admin accounts, children first.
func cleanData(gormDB *gorm.DB) error {
	return gormDB.Transaction(func(tx *gorm.DB) error {
		for _, table := range []interface{}{
			&model.Photo{},
			&model.JobHistory{},
			&model.Job{},
			&model.RollCallEntry{},
			&model.RollCall{},
			&model.Session{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return err
			}
		}
		return tx.Where("role <> ?", model.RoleAdmin).Delete(&model.User{}).Error
	})
}

func ensureAdmin(gormDB *gorm.DB, email, password string) (bool, error) {
	var existing model.User
	err := gormDB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	admin := model.User{
		Name:         "Administrator",
		Email:        &email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Region:       "All",
	}
	if err := gormDB.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
