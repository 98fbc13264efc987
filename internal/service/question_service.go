package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/moderation"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/repository"
	"gorm.io/gorm"
)

type QuestionService struct {
	questionRepo repository.QuestionRepository
	userRepo     repository.UserRepository
	moderator    Moderator
	broker       *realtime.Broker
}

func NewQuestionService(questionRepo repository.QuestionRepository, userRepo repository.UserRepository, moderator Moderator, broker *realtime.Broker) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		userRepo:     userRepo,
		moderator:    moderator,
		broker:       broker,
	}
}

type AskInput struct {
	ToUserID     uuid.UUID
	QuestionText string
}

// Ask accepts an anonymous question for a user. When the target user has
// moderation enabled the question is screened first; a moderation *failure*
// is reported as such, never silently treated as a verdict either way.
func (s *QuestionService) Ask(ctx context.Context, input AskInput) (*domain.Question, error) {
	text := strings.TrimSpace(input.QuestionText)
	if text == "" || utf8.RuneCountInString(text) > domain.MaxQuestionLength {
		return nil, domain.ErrQuestionTooLong
	}

	target, err := s.userRepo.GetByID(ctx, input.ToUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	question := &domain.Question{
		ID:           uuid.New(),
		ToUserID:     target.ID,
		QuestionText: text,
		CreatedAt:    time.Now(),
	}

	if target.IsModerationEnabled {
		verdict, err := s.moderator.Moderate(ctx, text)
		if err != nil {
			return nil, err
		}
		if !verdict.IsAppropriate {
			return nil, fmt.Errorf("%w: %s", domain.ErrQuestionRejected, verdict.Reason)
		}
		if raw, err := json.Marshal(verdict); err == nil {
			question.Moderation = raw
		}
	}

	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, err
	}

	s.broker.Publish(realtime.QuestionsPath, realtime.QuestionPath(question.ID))
	return question, nil
}

// Answer sets a question's answer exactly once. It returns the owning user
// as well, so callers know which public profile just changed.
func (s *QuestionService) Answer(ctx context.Context, userID, questionID uuid.UUID, answerText string) (*domain.Question, *domain.User, error) {
	text := strings.TrimSpace(answerText)
	if text == "" || utf8.RuneCountInString(text) > domain.MaxAnswerLength {
		return nil, nil, domain.ErrAnswerTooLong
	}

	question, err := s.getOwned(ctx, userID, questionID)
	if err != nil {
		return nil, nil, err
	}
	if question.IsAnswered {
		return nil, nil, domain.ErrAlreadyAnswered
	}

	now := time.Now()
	question.AnswerText = &text
	question.IsAnswered = true
	question.AnsweredAt = &now

	if err := s.questionRepo.Update(ctx, question); err != nil {
		return nil, nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, question.ToUserID)
	if err != nil {
		return nil, nil, err
	}

	s.broker.Publish(realtime.QuestionsPath, realtime.QuestionPath(question.ID))
	return question, owner, nil
}

// Delete removes a question from the owner's inbox and returns the owner.
func (s *QuestionService) Delete(ctx context.Context, userID, questionID uuid.UUID) (*domain.User, error) {
	question, err := s.getOwned(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}

	if err := s.questionRepo.Delete(ctx, question.ID); err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, question.ToUserID)
	if err != nil {
		return nil, err
	}

	s.broker.Publish(realtime.QuestionsPath, realtime.QuestionPath(question.ID))
	return owner, nil
}

// Moderate runs an on-demand moderation check over an existing question and
// stores the verdict alongside it.
func (s *QuestionService) Moderate(ctx context.Context, userID, questionID uuid.UUID) (*moderation.Verdict, error) {
	question, err := s.getOwned(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}

	verdict, err := s.moderator.Moderate(ctx, question.QuestionText)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(verdict); err == nil {
		question.Moderation = raw
		if err := s.questionRepo.Update(ctx, question); err != nil {
			return nil, err
		}
		s.broker.Publish(realtime.QuestionPath(question.ID))
	}

	return verdict, nil
}

func (s *QuestionService) ListForUser(ctx context.Context, userID uuid.UUID, descending bool) ([]*domain.Question, error) {
	return s.questionRepo.ListForUser(ctx, userID, descending)
}

func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	question, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) getOwned(ctx context.Context, userID, questionID uuid.UUID) (*domain.Question, error) {
	question, err := s.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question.ToUserID != userID {
		return nil, domain.ErrNotQuestionOwner
	}
	return question, nil
}
