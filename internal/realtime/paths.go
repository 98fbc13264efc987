package realtime

import "github.com/google/uuid"

// Path grammar:
//
//	users                  collection (equality filter on username or email)
//	users/<id>             document
//	questions              collection (equality filter on toUserId)
//	questions/<id>         document
//	users/<id>/notes       collection
//	users/<id>/notes/<id>  document
func UserPath(id uuid.UUID) string {
	return "users/" + id.String()
}

func QuestionPath(id uuid.UUID) string {
	return "questions/" + id.String()
}

func NotesPath(userID uuid.UUID) string {
	return "users/" + userID.String() + "/notes"
}

func NotePath(userID, noteID uuid.UUID) string {
	return NotesPath(userID) + "/" + noteID.String()
}

const (
	UsersPath     = "users"
	QuestionsPath = "questions"
)
