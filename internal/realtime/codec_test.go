package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wire documents come back from JSON with string timestamps, not time.Time;
// decoding has to accept both shapes.
func TestDecodeQuestion_AfterJSONRoundTrip(t *testing.T) {
	original := testutil.NewQuestionBuilder(uuid.New()).
		WithText("coffee or tea?").
		Answered("coffee, always").
		Question()

	raw, err := json.Marshal(realtime.EncodeQuestion(original))
	require.NoError(t, err)

	var doc realtime.Document
	require.NoError(t, json.Unmarshal(raw, &doc))

	decoded, err := realtime.DecodeQuestion(doc)
	require.NoError(t, err)
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.ToUserID, decoded.ToUserID)
	assert.Equal(t, "coffee or tea?", decoded.QuestionText)
	assert.True(t, decoded.IsAnswered)
	require.NotNil(t, decoded.AnswerText)
	assert.Equal(t, "coffee, always", *decoded.AnswerText)
	require.NotNil(t, decoded.AnsweredAt)
	assert.WithinDuration(t, *original.AnsweredAt, *decoded.AnsweredAt, time.Millisecond)
}

func TestDecodeQuestion_RejectsMalformedDocuments(t *testing.T) {
	valid := realtime.EncodeQuestion(testutil.NewQuestionBuilder(uuid.New()).Question())

	for _, field := range []string{"id", "toUserId", "questionText", "createdAt"} {
		doc := realtime.Document{}
		for k, v := range valid {
			doc[k] = v
		}
		delete(doc, field)

		_, err := realtime.DecodeQuestion(doc)
		assert.Error(t, err, "decoding should fail without %s", field)
	}
}

func TestDecodeUser_NeverCarriesCredentials(t *testing.T) {
	user := testutil.NewUserBuilder().WithUsername("sarah").User(t)
	doc := realtime.EncodeUser(user)

	_, hasEmail := doc["email"]
	_, hasPassword := doc["passwordHash"]
	require.False(t, hasEmail)
	require.False(t, hasPassword)

	decoded, err := realtime.DecodeUser(doc)
	require.NoError(t, err)
	assert.Equal(t, user.ID, decoded.ID)
	assert.Equal(t, "sarah", decoded.Username)
	assert.Empty(t, decoded.Email)
	assert.Empty(t, decoded.PasswordHash)
}

func TestDecodeNote_RequiresContent(t *testing.T) {
	note := &domain.Note{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ContentText: "remember the milk",
		CreatedAt:   time.Now(),
	}

	decoded, err := realtime.DecodeNote(realtime.EncodeNote(note))
	require.NoError(t, err)
	assert.Equal(t, note.ContentText, decoded.ContentText)

	doc := realtime.EncodeNote(note)
	doc["contentText"] = ""
	_, err = realtime.DecodeNote(doc)
	assert.ErrorContains(t, err, "contentText")
}
