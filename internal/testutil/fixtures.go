package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username   string
	email      string
	password   string
	moderation bool
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		username: fmt.Sprintf("testuser_%s", suffix),
		email:    fmt.Sprintf("test_%s@example.com", suffix),
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithModerationEnabled() *UserBuilder {
	b.moderation = true
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	user := b.User(t)
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// User constructs the domain object without persisting it.
func (b *UserBuilder) User(t *testing.T) *domain.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	return &domain.User{
		ID:                  uuid.New(),
		Username:            b.username,
		Email:               b.email,
		PasswordHash:        string(hashedPassword),
		IsModerationEnabled: b.moderation,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
}

// QuestionBuilder creates test questions
type QuestionBuilder struct {
	toUserID  uuid.UUID
	text      string
	createdAt time.Time
	answered  bool
	answer    string
}

func NewQuestionBuilder(toUserID uuid.UUID) *QuestionBuilder {
	return &QuestionBuilder{
		toUserID:  toUserID,
		text:      "What is your favorite color?",
		createdAt: time.Now(),
	}
}

func (b *QuestionBuilder) WithText(text string) *QuestionBuilder {
	b.text = text
	return b
}

func (b *QuestionBuilder) WithCreatedAt(createdAt time.Time) *QuestionBuilder {
	b.createdAt = createdAt
	return b
}

func (b *QuestionBuilder) Answered(answer string) *QuestionBuilder {
	b.answered = true
	b.answer = answer
	return b
}

// Question constructs the domain object without persisting it.
func (b *QuestionBuilder) Question() *domain.Question {
	q := &domain.Question{
		ID:           uuid.New(),
		ToUserID:     b.toUserID,
		QuestionText: b.text,
		CreatedAt:    b.createdAt,
	}
	if b.answered {
		now := time.Now()
		q.AnswerText = &b.answer
		q.IsAnswered = true
		q.AnsweredAt = &now
	}
	return q
}

func (b *QuestionBuilder) Build(t *testing.T, db *gorm.DB) *domain.Question {
	t.Helper()

	q := b.Question()
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("failed to create question: %v", err)
	}
	return q
}
