package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/db"
	"github.com/mvrodados/mvrodados/retrieval"
)

// HistoryEntry is one persisted ChatHistory row.
type HistoryEntry struct {
	ConversationID string             `json:"conversationId"`
	Role           string             `json:"role"`
	Message        string             `json:"message"`
	Sources        []retrieval.Source `json:"sources"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// Conversation summarizes one conversation of ChatHistory.
type Conversation struct {
	ID           string    `json:"id"`
	LastMessage  string    `json:"lastMessage"`
	LastActivity time.Time `json:"lastActivity"`
}

// Turn is a message to persist with its sources.
type Turn struct {
	Role    string
	Message string
	Sources []retrieval.Source
}

// RecordResult reports what Record managed to store. Callers may ignore
// it; failures are already logged.
type RecordResult struct {
	Saved int
	Err   error
}

// HistoryRepo reads and appends ChatHistory rows.
type HistoryRepo struct {
	q   db.Querier
	now func() time.Time
}

func NewHistoryRepo(q db.Querier) *HistoryRepo {
	return &HistoryRepo{q: q, now: time.Now}
}

func (h *HistoryRepo) id(name string) string { return h.q.SQLDialect().Quote(name) }

// Record appends turns in order, stopping at the first failure.
func (h *HistoryRepo) Record(ctx context.Context, conversationID string, turns ...Turn) RecordResult {
	stmt := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s) VALUES (?, ?, ?, ?, ?)",
		h.id("ChatHistory"), h.id("conversationId"), h.id("role"), h.id("message"), h.id("sources"), h.id("createdAt"))

	var res RecordResult
	for _, t := range turns {
		var sources any
		if len(t.Sources) > 0 {
			raw, err := json.Marshal(t.Sources)
			if err == nil {
				sources = string(raw)
			}
		}
		if _, err := h.q.Exec(ctx, stmt, conversationID, t.Role, t.Message, sources, h.now().UTC()); err != nil {
			res.Err = err
			applog.Warn("chat history not saved", "conversation", conversationID, "role", t.Role, "err", err)
			return res
		}
		res.Saved++
	}
	return res
}

func (h *HistoryRepo) selectEntries(ctx context.Context, where string, args ...any) ([]HistoryEntry, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, %s, %s FROM %s %s ORDER BY %s, %s",
		h.id("conversationId"), h.id("role"), h.id("message"), h.id("sources"), h.id("createdAt"),
		h.id("ChatHistory"), where, h.id("createdAt"), h.id("id"))
	rows, err := h.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, rows.Len())
	for _, r := range rows.Records {
		e := HistoryEntry{
			ConversationID: db.AsString(r["conversationId"]),
			Role:           db.AsString(r["role"]),
			Message:        db.AsString(r["message"]),
		}
		if raw := db.AsString(r["sources"]); raw != "" {
			_ = json.Unmarshal([]byte(raw), &e.Sources)
		}
		e.CreatedAt, _ = db.AsTime(r["createdAt"])
		out = append(out, e)
	}
	return out, nil
}

// Conversation returns one conversation's rows, oldest first.
func (h *HistoryRepo) Conversation(ctx context.Context, conversationID string) ([]HistoryEntry, error) {
	return h.selectEntries(ctx, "WHERE "+h.id("conversationId")+" = ?", conversationID)
}

// All returns every row, oldest first.
func (h *HistoryRepo) All(ctx context.Context) ([]HistoryEntry, error) {
	return h.selectEntries(ctx, "")
}

// DeleteConversation drops a conversation's rows.
func (h *HistoryRepo) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := h.q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", h.id("ChatHistory"), h.id("conversationId")), conversationID)
	return err
}

// Conversations lists conversations by most recent activity.
func (h *HistoryRepo) Conversations(ctx context.Context) ([]Conversation, error) {
	d := h.q.SQLDialect()
	conv, created, msg := h.id("conversationId"), h.id("createdAt"), h.id("message")
	query := fmt.Sprintf(`SELECT h1.%[1]s AS conversation_id, MAX(h1.%[2]s) AS last_activity,
		(%[4]s%[3]s FROM %[5]s h2 WHERE h2.%[1]s = h1.%[1]s ORDER BY h2.%[2]s DESC, h2.%[6]s DESC%[7]s) AS last_message
		FROM %[5]s h1
		GROUP BY h1.%[1]s
		ORDER BY last_activity DESC`,
		conv, created, msg, d.SelectHead(1), h.id("ChatHistory"), h.id("id"), d.LimitTail(1))
	rows, err := h.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]Conversation, 0, rows.Len())
	for _, r := range rows.Records {
		c := Conversation{
			ID:          db.AsString(r["conversation_id"]),
			LastMessage: db.AsString(r["last_message"]),
		}
		c.LastActivity, _ = db.AsTime(r["last_activity"])
		out = append(out, c)
	}
	return out, nil
}
