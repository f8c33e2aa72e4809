package models

import "time"

// Turn is one question/answer exchange in a user's chat history.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// ChannelType identifies the transport a message arrived on.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelConsole  ChannelType = "console"
)
