package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const msgInvalidCredentials = "Credenciais inválidas."

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginInfo struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Nome        string    `json:"nome"`
}

// Login checks the credentials and issues a bearer token. Unknown users, inactive users and
// wrong passwords all fail with the same unauthorized error.
func Login(ctx context.Context, db *gorm.DB, tokens *utils.TokenIssuer, username string, password string) (*LoginInfo, error) {
	username = html.EscapeString(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, utils.NewValidationError(msgIncompleteData)
	}

	var users []User
	if err := db.WithContext(ctx).Where("username = ?", username).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, utils.NewUnauthorizedError(msgInvalidCredentials)
	}
	user := users[0]
	if user.IsActive != nil && !*user.IsActive {
		return nil, utils.NewUnauthorizedError(msgInvalidCredentials)
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, utils.NewUnauthorizedError(msgInvalidCredentials)
		}
		return nil, err
	}

	token, expiresAt, err := tokens.JwtGenerate(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &LoginInfo{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Nome:        user.Name,
	}, nil
}

// UpsertUser creates the user or resets name, password and active flag of an existing one.
func UpsertUser(ctx context.Context, db *gorm.DB, input NewUser) (*User, error) {
	username := html.EscapeString(strings.TrimSpace(input.Username))
	if username == "" || input.Password == "" {
		return nil, utils.NewValidationError(msgIncompleteData)
	}
	name := utils.DefaultIfBlank(input.Name, username)
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	var user User
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []User
		if err := tx.Where("username = ?", username).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) == 0 {
			user = User{
				Username: username,
				Name:     name,
				Password: string(hashed),
				IsActive: &isActive,
			}
			return tx.Create(&user).Error
		}
		user = existing[0]
		user.Name = name
		user.Password = string(hashed)
		user.IsActive = &isActive
		return tx.Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"name":      user.Name,
			"password":  user.Password,
			"is_active": isActive,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
