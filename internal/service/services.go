package service

import (
	"context"

	"github.com/nward/askbox/internal/config"
	"github.com/nward/askbox/internal/moderation"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/repository"
)

// Moderator is the gateway the question service consults before accepting a
// question for a user who enabled moderation.
type Moderator interface {
	Moderate(ctx context.Context, questionText string) (*moderation.Verdict, error)
}

type Services struct {
	Auth     *AuthService
	Question *QuestionService
	Note     *NoteService
	Profile  *ProfileService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, moderator Moderator, broker *realtime.Broker) *Services {
	return &Services{
		Auth:     NewAuthService(repos.User, cfg),
		Question: NewQuestionService(repos.Question, repos.User, moderator, broker),
		Note:     NewNoteService(repos.Note, broker),
		Profile:  NewProfileService(repos.User, broker),
	}
}
