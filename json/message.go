package json

import (
	"time"

	"github.com/fwojciec/skim"
)

// messageDTO is the JSON representation of a Message.
type messageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func marshalMessage(m skim.Message) messageDTO {
	return messageDTO{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func unmarshalMessage(dto messageDTO) skim.Message {
	return skim.Message{
		ID:        dto.ID,
		Role:      skim.Role(dto.Role),
		Content:   dto.Content,
		Timestamp: dto.Timestamp,
	}
}
