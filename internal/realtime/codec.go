package realtime

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
)

// Per-entity codecs. Encoding decides exactly which fields cross the wire
// (password hashes and email addresses never do); decoding validates the
// required fields instead of trusting the document's shape.

func EncodeUser(u *domain.User) Document {
	return Document{
		"id":                  u.ID.String(),
		"username":            u.Username,
		"bio":                 u.Bio,
		"isModerationEnabled": u.IsModerationEnabled,
		"createdAt":           u.CreatedAt,
	}
}

func EncodeQuestion(q *domain.Question) Document {
	return Document{
		"id":           q.ID.String(),
		"toUserId":     q.ToUserID.String(),
		"questionText": q.QuestionText,
		"answerText":   q.AnswerText,
		"isAnswered":   q.IsAnswered,
		"createdAt":    q.CreatedAt,
		"answeredAt":   q.AnsweredAt,
	}
}

func EncodeNote(n *domain.Note) Document {
	return Document{
		"id":          n.ID.String(),
		"userId":      n.UserID.String(),
		"contentText": n.ContentText,
		"createdAt":   n.CreatedAt,
	}
}

func DecodeQuestion(doc Document) (*domain.Question, error) {
	id, err := docID(doc)
	if err != nil {
		return nil, err
	}

	toUserID, err := docUUID(doc, "toUserId")
	if err != nil {
		return nil, err
	}

	text, ok := doc["questionText"].(string)
	if !ok || text == "" {
		return nil, fmt.Errorf("document %s: missing questionText", id)
	}

	createdAt, err := docTime(doc, "createdAt")
	if err != nil {
		return nil, err
	}

	q := &domain.Question{
		ID:           id,
		ToUserID:     toUserID,
		QuestionText: text,
		CreatedAt:    createdAt,
	}

	if answered, ok := doc["isAnswered"].(bool); ok {
		q.IsAnswered = answered
	}
	if answer, ok := doc["answerText"].(string); ok {
		q.AnswerText = &answer
	}
	if _, present := doc["answeredAt"]; present && doc["answeredAt"] != nil {
		answeredAt, err := docTime(doc, "answeredAt")
		if err != nil {
			return nil, err
		}
		q.AnsweredAt = &answeredAt
	}

	return q, nil
}

func DecodeUser(doc Document) (*domain.User, error) {
	id, err := docID(doc)
	if err != nil {
		return nil, err
	}

	username, ok := doc["username"].(string)
	if !ok || username == "" {
		return nil, fmt.Errorf("document %s: missing username", id)
	}

	createdAt, err := docTime(doc, "createdAt")
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:        id,
		Username:  username,
		CreatedAt: createdAt,
	}

	if bio, ok := doc["bio"].(string); ok {
		u.Bio = &bio
	}
	if enabled, ok := doc["isModerationEnabled"].(bool); ok {
		u.IsModerationEnabled = enabled
	}

	return u, nil
}

func DecodeNote(doc Document) (*domain.Note, error) {
	id, err := docID(doc)
	if err != nil {
		return nil, err
	}

	userID, err := docUUID(doc, "userId")
	if err != nil {
		return nil, err
	}

	content, ok := doc["contentText"].(string)
	if !ok || content == "" {
		return nil, fmt.Errorf("document %s: missing contentText", id)
	}

	createdAt, err := docTime(doc, "createdAt")
	if err != nil {
		return nil, err
	}

	return &domain.Note{
		ID:          id,
		UserID:      userID,
		ContentText: content,
		CreatedAt:   createdAt,
	}, nil
}

func docID(doc Document) (uuid.UUID, error) {
	return docUUID(doc, "id")
}

func docUUID(doc Document, field string) (uuid.UUID, error) {
	raw, ok := doc[field].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("document missing %s field", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("document field %s: %w", field, err)
	}
	return id, nil
}

// docTime accepts a native time.Time (server side) or an RFC 3339 string
// (a document that round-tripped through JSON).
func docTime(doc Document, field string) (time.Time, error) {
	switch v := doc[field].(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("document field %s: %w", field, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("document missing %s field", field)
	}
}
