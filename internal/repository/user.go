package repository

import (
	"errors"

	"gorm.io/gorm"

	"route_mapper/internal/models"
)

// EnsureAdmin creates or refreshes the operator account used by the auth
// layer. The password hash comes from configuration, pre-hashed.
func (r *Repository) EnsureAdmin(email, passwordHash string) error {
	if passwordHash == "" {
		return errors.New("ADMIN_PASSWORD_HASH is required when auth is enabled")
	}

	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&models.User{Name: "admin", Email: email, Password: passwordHash}).Error
	}
	if err != nil {
		return err
	}
	if user.Password != passwordHash {
		return r.db.Model(&user).Update("password", passwordHash).Error
	}
	return nil
}

// FindUserByEmail looks up an operator account.
func (r *Repository) FindUserByEmail(email string) (models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, notFoundOr(err, "user")
	}
	return user, nil
}
