package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username            string    `json:"username" gorm:"uniqueIndex;not null"`
	Email               string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash        string    `json:"-" gorm:"not null"`
	Bio                 *string   `json:"bio"`
	IsModerationEnabled bool      `json:"isModerationEnabled" gorm:"not null;default:false"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
