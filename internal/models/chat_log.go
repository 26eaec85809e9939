package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Username  string             `bson:"username" json:"username"`
	Prompt    string             `bson:"prompt" json:"prompt"`
	Message   string             `bson:"message" json:"message"`
	Title     *string            `bson:"title,omitempty" json:"title,omitempty"`
	ToolCalls []ToolCallLog      `bson:"tool_calls,omitempty" json:"tool_calls,omitempty"`
	Rounds    int                `bson:"rounds" json:"rounds"`
	Source    string             `bson:"source" json:"source"` // text|speech|ws
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type ToolCallLog struct {
	Name      string `bson:"name" json:"name"`
	Arguments string `bson:"arguments" json:"arguments"`
	Failed    bool   `bson:"failed" json:"failed"`
}
