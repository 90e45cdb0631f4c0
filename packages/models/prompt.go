// Package models holds the prompt request and response pieces exchanged with
// targets. Pieces carry the IDs a conversation store keys on; storing them is
// left to the caller.
package models

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/extract"
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type PromptRequestPiece struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID string            `json:"conversationId"`
	Role           Role              `json:"role"`
	OriginalValue  string            `json:"originalValue"`
	ConvertedValue string            `json:"convertedValue,omitempty"`
	DataType       extract.DataType  `json:"dataType"`
	Labels         map[string]string `json:"labels,omitempty"`
	Target         string            `json:"target,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// NewUserPiece starts a new conversation with a single user prompt.
func NewUserPiece(prompt string) *PromptRequestPiece {
	return &PromptRequestPiece{
		ID:             uuid.New(),
		ConversationID: uuid.NewString(),
		Role:           RoleUser,
		OriginalValue:  prompt,
		DataType:       extract.TypeText,
		Timestamp:      time.Now().UTC(),
	}
}

// Value is what gets sent: the converted value when a converter produced
// one, the original otherwise.
func (p *PromptRequestPiece) Value() string {
	if p.ConvertedValue != "" {
		return p.ConvertedValue
	}
	return p.OriginalValue
}

type PromptRequestResponse struct {
	Pieces []*PromptRequestPiece `json:"pieces"`
}

func NewPromptRequest(pieces ...*PromptRequestPiece) *PromptRequestResponse {
	return &PromptRequestResponse{Pieces: pieces}
}

// Single returns the only piece, or an error when there is not exactly one.
func (r *PromptRequestResponse) Single() (*PromptRequestPiece, error) {
	if r == nil || len(r.Pieces) != 1 {
		n := 0
		if r != nil {
			n = len(r.Pieces)
		}
		return nil, fmt.Errorf("target supports a single prompt request piece, got %d", n)
	}
	return r.Pieces[0], nil
}

// Text returns the first piece's original value, or "" when there is none.
func (r *PromptRequestResponse) Text() string {
	if r == nil || len(r.Pieces) == 0 {
		return ""
	}
	return r.Pieces[0].OriginalValue
}

// ConstructResponse builds the assistant reply to req, one piece per text.
// Conversation, labels and target carry over; IDs are new.
func ConstructResponse(req *PromptRequestPiece, texts []string, dataType extract.DataType) *PromptRequestResponse {
	now := time.Now().UTC()
	resp := &PromptRequestResponse{Pieces: make([]*PromptRequestPiece, 0, len(texts))}
	for _, text := range texts {
		var labels map[string]string
		if len(req.Labels) > 0 {
			labels = make(map[string]string, len(req.Labels))
			for k, v := range req.Labels {
				labels[k] = v
			}
		}
		resp.Pieces = append(resp.Pieces, &PromptRequestPiece{
			ID:             uuid.New(),
			ConversationID: req.ConversationID,
			Role:           RoleAssistant,
			OriginalValue:  text,
			DataType:       dataType,
			Labels:         labels,
			Target:         req.Target,
			Timestamp:      now,
		})
	}
	return resp
}
