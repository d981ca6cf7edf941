package conversation

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a user's conversation. (UserID, Timestamp) is the
// primary key and Timestamp is the only ordering the store guarantees.
type Turn struct {
	UserID    string    `gorm:"column:user_id;type:text;primaryKey" json:"user_id"`
	Timestamp time.Time `gorm:"column:timestamp;primaryKey;autoCreateTime:false" json:"timestamp"`
	Role      string    `gorm:"column:role;type:text;not null" json:"role"`
	Message   string    `gorm:"column:message;type:text;not null" json:"message"`
}

func (Turn) TableName() string { return "conversation_turn" }

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
