package main

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"smartstock/models"
)

// Authenticate checks an email/password pair against the users table.
// The error is deliberately the same for unknown email and wrong password.
func Authenticate(email, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("invalid credentials")
	}
	if !user.IsActive {
		return models.User{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return models.User{}, fmt.Errorf("invalid credentials")
	}
	return user, nil
}
