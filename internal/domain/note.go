package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxNoteLength = 500

// Note is a private scratchpad entry on the owner's dashboard. Notes are
// never visible to anyone but the owning user.
type Note struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID      uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	ContentText string    `json:"contentText" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
}
