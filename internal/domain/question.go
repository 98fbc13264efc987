package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MaxQuestionLength = 280
	MaxAnswerLength   = 1000
)

type Question struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ToUserID     uuid.UUID      `json:"toUserId" gorm:"type:uuid;not null;index"`
	QuestionText string         `json:"questionText" gorm:"not null"`
	AnswerText   *string        `json:"answerText"`
	IsAnswered   bool           `json:"isAnswered" gorm:"not null;default:false"`
	Moderation   datatypes.JSON `json:"moderation,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	AnsweredAt   *time.Time     `json:"answeredAt"`
}
