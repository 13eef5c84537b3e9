// messages.go defines Bubble Tea messages used for async communication.
//
// Every server call runs in a tea.Cmd and reports back through one of
// these types, so the UI never blocks on the network.
package tui

import "github.com/mvrodados/mvrodados/chat"

// ChatReplyMsg is sent when POST /api/chat completes.
type ChatReplyMsg struct {
	Response *chat.Response
	Err      error
}

// HistoryMsg carries the turns of a conversation.
type HistoryMsg struct {
	ConversationID string
	Messages       []chat.Message
	Err            error
}

// ConversationsMsg carries the conversation list.
type ConversationsMsg struct {
	Conversations []chat.Conversation
	Err           error
}

// ClearedMsg is sent when a conversation was deleted on the server.
type ClearedMsg struct {
	Err error
}

// OpenConversationMsg asks the chat view to resume a conversation.
type OpenConversationMsg struct {
	ID string
}

// StatusMsg is a transient status message for the status bar.
type StatusMsg string
