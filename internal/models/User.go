package models

import "gorm.io/gorm"

// User is an operator account used by the optional auth layer
type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
}
