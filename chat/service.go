// Package chat routes a user's message to the right backend (accounting
// report, database operation, web price lookup or retrieval over rows
// and documents) and keeps the conversation.
//
// Routing is a fixed, short-circuiting sequence; see ProcessMessage.
// Live turns sit in a SessionStore; every turn is also appended to the
// ChatHistory table on a best-effort basis.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvrodados/mvrodados/accounting"
	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/db"
	"github.com/mvrodados/mvrodados/retrieval"
	"github.com/mvrodados/mvrodados/sqlgen"
	"github.com/mvrodados/mvrodados/websearch"
)

// Reply is the assistant's answer to one message.
type Reply struct {
	Text      string             `json:"text"`
	Sources   []retrieval.Source `json:"sources"`
	Timestamp time.Time          `json:"timestamp"`
}

// Response pairs a reply with its conversation.
type Response struct {
	ConversationID string `json:"conversationId"`
	Response       Reply  `json:"response"`
}

// Deps are the collaborators of a Service. Accounting and Web may be nil;
// their routes are then skipped.
type Deps struct {
	Store       retrieval.Store
	Sessions    SessionStore
	History     *HistoryRepo
	Interpreter *ai.Interpreter
	Retrieval   *retrieval.Service
	Accounting  *accounting.Service
	Web         *websearch.Service
	ShowSQL     bool
}

// Service processes chat messages.
type Service struct {
	store       retrieval.Store
	sessions    SessionStore
	history     *HistoryRepo
	interpreter *ai.Interpreter
	retrieval   *retrieval.Service
	accounting  *accounting.Service
	web         *websearch.Service
	showSQL     bool

	Now   func() time.Time
	NewID func() string
}

func NewService(d Deps) *Service {
	if d.Sessions == nil {
		d.Sessions = NewMemorySessionStore(time.Hour)
	}
	return &Service{
		store:       d.Store,
		sessions:    d.Sessions,
		history:     d.History,
		interpreter: d.Interpreter,
		retrieval:   d.Retrieval,
		accounting:  d.Accounting,
		web:         d.Web,
		showSQL:     d.ShowSQL,
		Now:         time.Now,
		NewID:       uuid.NewString,
	}
}

var accountingKeywords = []string{
	"balance", "ventas del mes", "resumen contable", "contabilidad", "ingresos y egresos",
}

var (
	webWords    = []string{"buscar", "precio", "mercado", "internet"}
	domainWords = regexp.MustCompile(`\b(clientes?|motos?|accesorios?|cascos?|bicicletas?|indumentarias?|comprobantes?)\b`)
)

// IsAccountingQuery reports whether a message asks for the accounting summary.
func IsAccountingQuery(msg string) bool {
	lower := strings.ToLower(msg)
	for _, k := range accountingKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// IsWebSearchQuery reports whether a message looks like a market price
// question rather than one about the shop's own tables.
func IsWebSearchQuery(msg string) bool {
	lower := strings.ToLower(msg)
	hit := false
	for _, w := range webWords {
		if strings.Contains(lower, w) {
			hit = true
			break
		}
	}
	return hit && !domainWords.MatchString(lower)
}

// ErrorText is the reply shown when a message could not be processed.
func ErrorText(err error) string {
	return fmt.Sprintf("⚠️ Lo siento, ocurrió un error: %s. Por favor, intenta de nuevo.", err)
}

// ProcessMessage answers message within conversationID, creating a new
// conversation when the id is empty. It never fails: errors become the
// reply text.
//
// Routing, first match wins:
//  1. accounting keywords: monthly report, no model call;
//  2. a database intent: compile, execute and format;
//  3. a web_search intent or a price question: web lookup;
//  4. anything else: retrieval over tables and documents.
func (s *Service) ProcessMessage(ctx context.Context, message, conversationID string) Response {
	if conversationID == "" {
		conversationID = s.NewID()
	}
	if err := s.sessions.Append(ctx, conversationID, Message{Role: RoleUser, Content: message}); err != nil {
		applog.Warn("session append failed", "conversation", conversationID, "err", err)
	}

	text, sources, err := s.route(ctx, message)
	if err != nil {
		applog.Error("chat message failed", "conversation", conversationID, "err", err)
		text, sources = ErrorText(err), nil
	}
	if sources == nil {
		sources = []retrieval.Source{}
	}

	if err := s.sessions.Append(ctx, conversationID, Message{Role: RoleAssistant, Content: text}); err != nil {
		applog.Warn("session append failed", "conversation", conversationID, "err", err)
	}
	if s.history != nil {
		s.history.Record(ctx, conversationID,
			Turn{Role: RoleUser, Message: message},
			Turn{Role: RoleAssistant, Message: text, Sources: sources})
	}

	return Response{
		ConversationID: conversationID,
		Response:       Reply{Text: text, Sources: sources, Timestamp: s.Now()},
	}
}

func (s *Service) route(ctx context.Context, message string) (string, []retrieval.Source, error) {
	if s.accounting != nil && IsAccountingQuery(message) {
		applog.Event("chat", "route", "to", "accounting")
		rep, err := s.accounting.MonthReport(ctx, s.Now())
		if err != nil {
			return "", nil, err
		}
		return rep.Format(), nil, nil
	}

	schema := s.store.SchemaOrEmpty(ctx)
	intent := s.interpreter.Interpret(ctx, message, schema)

	switch {
	case intent.Action.IsDBAction():
		applog.Event("chat", "route", "to", "database", "action", intent.Action, "table", intent.Table)
		text, err := s.execute(ctx, intent, schema)
		return text, nil, err
	case s.web != nil && (intent.Action == ai.ActionWebSearch || IsWebSearchQuery(message)):
		applog.Event("chat", "route", "to", "web")
		return s.web.Search(ctx, message), nil, nil
	default:
		applog.Event("chat", "route", "to", "retrieval")
		ans := s.retrieval.AnswerQuery(ctx, message)
		return ans.Text, ans.Sources, nil
	}
}

func (s *Service) execute(ctx context.Context, intent ai.Intent, schema db.SchemaMap) (string, error) {
	script, err := sqlgen.NewCompiler(schema, s.store.SQLDialect()).Compile(intent)
	if err != nil {
		return "", fmt.Errorf("error en operación de base de datos: %w", err)
	}

	var text string
	switch script.Action {
	case ai.ActionSelect:
		rows, err := s.store.Query(ctx, script.SQL, script.Args...)
		if err != nil {
			return "", fmt.Errorf("error en operación de base de datos: %w", err)
		}
		text = FormatSelect(script.Table, rows)
	case ai.ActionInsert:
		if _, err := s.store.Query(ctx, script.SQL, script.Args...); err != nil {
			return "", fmt.Errorf("error en operación de base de datos: %w", err)
		}
		text = "✅ Registro insertado en " + script.Table
	case ai.ActionUpdate:
		if _, err := s.store.Exec(ctx, script.SQL, script.Args...); err != nil {
			return "", fmt.Errorf("error en operación de base de datos: %w", err)
		}
		text = "✅ Registro actualizado en " + script.Table
	case ai.ActionDelete:
		if _, err := s.store.Exec(ctx, script.SQL, script.Args...); err != nil {
			return "", fmt.Errorf("error en operación de base de datos: %w", err)
		}
		text = "✅ Registro eliminado de " + script.Table
	default:
		return "No entendí la operación que quieres realizar.", nil
	}

	if s.showSQL {
		text += "\n\n```sql\n" + sqlgen.Inline(script.SQL, script.Args) + "\n```"
	}
	return text, nil
}

// maxListed caps how many records a select reply spells out.
const maxListed = 5

// FormatSelect renders query rows as a chat reply. Null and empty
// values are left out.
func FormatSelect(table string, rows *db.Rows) string {
	if rows.Len() == 0 {
		return fmt.Sprintf("📊 **%s** - No se encontraron registros.", table)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **%s** - %d registros encontrados:\n\n", table, rows.Len())
	for i, rec := range rows.Records {
		if i == maxListed {
			break
		}
		fmt.Fprintf(&sb, "**Registro %d:**\n", i+1)
		for _, col := range rows.Columns {
			v := rec[col]
			if v == nil {
				continue
			}
			if str := db.AsString(v); str != "" {
				fmt.Fprintf(&sb, "• %s: %s\n", col, str)
			}
		}
		sb.WriteString("\n")
	}
	if rows.Len() > maxListed {
		fmt.Fprintf(&sb, "\n... y %d registros más.", rows.Len()-maxListed)
	}
	return sb.String()
}

// History returns the live turns of a conversation, or its persisted
// rows when the session has expired.
func (s *Service) History(ctx context.Context, conversationID string) ([]Message, error) {
	msgs, err := s.sessions.Get(ctx, conversationID)
	if err != nil {
		applog.Warn("session read failed", "conversation", conversationID, "err", err)
	}
	if len(msgs) > 0 || s.history == nil {
		if msgs == nil {
			msgs = []Message{}
		}
		return msgs, nil
	}
	rows, err := s.history.Conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]Message, len(rows))
	for i, r := range rows {
		out[i] = Message{Role: r.Role, Content: r.Message}
	}
	return out, nil
}

// Clear forgets a conversation in the session store and in ChatHistory.
func (s *Service) Clear(ctx context.Context, conversationID string) error {
	var errs []error
	if err := s.sessions.Delete(ctx, conversationID); err != nil {
		errs = append(errs, err)
	}
	if s.history != nil {
		if err := s.history.DeleteConversation(ctx, conversationID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Conversations lists persisted conversations, most recent first.
func (s *Service) Conversations(ctx context.Context) ([]Conversation, error) {
	if s.history == nil {
		return []Conversation{}, nil
	}
	return s.history.Conversations(ctx)
}

// AllHistory returns every persisted turn, oldest first.
func (s *Service) AllHistory(ctx context.Context) ([]HistoryEntry, error) {
	if s.history == nil {
		return []HistoryEntry{}, nil
	}
	return s.history.All(ctx)
}
