package domain

import "time"

// Roles permitidos para mensajes dentro de una conversacion.
const (
	MessageRoleUpdate   = "update"
	MessageRoleResponse = "response"
)

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	Body           string    `json:"body"`
	Role           string    `json:"role"`
	Seq            int64     `json:"seq"`
	CreatedAt      time.Time `json:"created_at"`
}
