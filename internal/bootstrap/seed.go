package bootstrap

import (
	"errors"
	"strings"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Profile{},
		&entity.College{},
		&entity.Notice{},
		&entity.PinnedNotice{},
		&entity.Upload{},
	)
}

// SeedSuperAdmin makes sure the configured account exists with the
// super_admin role. An existing profile is promoted in place.
func SeedSuperAdmin(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	log := logger.WithModule("bootstrap")

	return db.Transaction(func(tx *gorm.DB) error {
		var user entity.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if password == "" {
				return errors.New("super admin password is required to seed a new account")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user = entity.User{Email: email, DisplayName: "Super Admin", PasswordHash: string(hash)}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			log.Info("super admin user seeded", zap.String("email", email))
		case err != nil:
			return err
		}

		var profile entity.Profile
		err = tx.Where("email = ?", email).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			profile = entity.Profile{UserID: &user.ID, Email: email, Name: user.DisplayName, Role: entity.RoleSuperAdmin}
			return tx.Create(&profile).Error
		case err != nil:
			return err
		}

		if profile.Role == entity.RoleSuperAdmin && profile.UserID != nil {
			log.Debug("super admin already exists, skipping seed")
			return nil
		}
		return tx.Model(&profile).Updates(map[string]any{
			"user_id": user.ID,
			"role":    entity.RoleSuperAdmin,
		}).Error
	})
}
