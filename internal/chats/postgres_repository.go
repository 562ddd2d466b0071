package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/clinic-crm/internal/database"
)

const chatColumns = `c.id, COALESCE(c.title, ''), COALESCE(c.summary, ''), c.created_at, c.updated_at, (SELECT count(*) FROM messages m WHERE m.chat_id = c.id)`

const messageColumns = `id, chat_id, content, message_type, COALESCE(model_used, ''), COALESCE(tokens_used, ''), function_calls, created_at`

// PostgresRepository stores chats and messages in the relational database.
type PostgresRepository struct {
	pool database.PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool database.PgxPool) *PostgresRepository {
	if pool == nil {
		panic("chats: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, title string) (*Chat, error) {
	c := &Chat{ID: uuid.New(), Title: strings.TrimSpace(title)}
	query := `INSERT INTO chats (id, title) VALUES ($1, NULLIF($2, '')) RETURNING created_at, updated_at`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query, c.ID, c.Title).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("chats: insert failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID, withMessages bool) (*Chat, error) {
	c, err := scanChat(database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+chatColumns+` FROM chats c WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("chats: select failed: %w", err)
	}
	if withMessages {
		rows, err := database.Conn(ctx, r.pool).Query(ctx, `SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at`, id)
		if err != nil {
			return nil, fmt.Errorf("chats: list messages failed: %w", err)
		}
		if c.Messages, err = collectMessages(rows); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, page Page) (*ListResult, error) {
	page = page.clamp(DefaultChatLimit, MaxChatLimit)
	conn := database.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM chats`).Scan(&total); err != nil {
		return nil, fmt.Errorf("chats: count failed: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+chatColumns+` FROM chats c ORDER BY c.updated_at DESC OFFSET $1 LIMIT $2`, page.Skip, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("chats: list failed: %w", err)
	}
	defer rows.Close()

	out := &ListResult{Chats: []*Chat{}, Total: total}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("chats: scan failed: %w", err)
		}
		out.Chats = append(out.Chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chats: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*Chat, error) {
	if title = strings.TrimSpace(title); title != "" {
		tag, err := database.Conn(ctx, r.pool).Exec(ctx, `UPDATE chats SET title = $2, updated_at = now() WHERE id = $1`, id, title)
		if err != nil {
			return nil, fmt.Errorf("chats: update failed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrChatNotFound
		}
	}
	return r.Get(ctx, id, false)
}

func (r *PostgresRepository) Touch(ctx context.Context, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `UPDATE chats SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("chats: touch failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Delete removes the chat; messages go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("chats: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *PostgresRepository) AddMessage(ctx context.Context, msg *Message) (*Message, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return nil, ErrEmptyMessage
	}
	out := *msg
	out.ID = uuid.New()
	var calls []byte
	if len(out.FunctionCalls) > 0 {
		calls = out.FunctionCalls
	}
	query := `
		INSERT INTO messages (id, chat_id, content, message_type, model_used, tokens_used, function_calls)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING created_at
	`
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		out.ID, out.ChatID, out.Content, string(out.Type), out.ModelUsed, out.TokensUsed, calls,
	).Scan(&out.CreatedAt); err != nil {
		if database.SQLState(err) == database.SQLStateForeignKeyViolation {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("chats: insert message failed: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) ListMessages(ctx context.Context, chatID uuid.UUID, page Page) ([]*Message, error) {
	page = page.clamp(DefaultMessageLimit, MaxMessageLimit)
	if err := r.exists(ctx, chatID); err != nil {
		return nil, err
	}
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at OFFSET $2 LIMIT $3`, chatID, page.Skip, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("chats: list messages failed: %w", err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	return msgs, nil
}

func (r *PostgresRepository) RecentMessages(ctx context.Context, chatID uuid.UUID, n int) ([]*Message, error) {
	if err := r.exists(ctx, chatID); err != nil {
		return nil, err
	}
	query := `SELECT ` + messageColumns + ` FROM (SELECT * FROM messages WHERE chat_id = $1 ORDER BY created_at DESC LIMIT $2) recent ORDER BY created_at`
	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, chatID, n)
	if err != nil {
		return nil, fmt.Errorf("chats: recent messages failed: %w", err)
	}
	return collectMessages(rows)
}

func (r *PostgresRepository) exists(ctx context.Context, chatID uuid.UUID) error {
	var found bool
	if err := database.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1)`, chatID).Scan(&found); err != nil {
		return fmt.Errorf("chats: lookup failed: %w", err)
	}
	if !found {
		return ErrChatNotFound
	}
	return nil
}

func scanChat(row pgx.Row) (*Chat, error) {
	var c Chat
	if err := row.Scan(&c.ID, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
		return nil, err
	}
	return &c, nil
}

func collectMessages(rows pgx.Rows) ([]*Message, error) {
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var (
			m     Message
			kind  string
			calls []byte
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Content, &kind, &m.ModelUsed, &m.TokensUsed, &calls, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chats: scan message failed: %w", err)
		}
		m.Type = MessageType(kind)
		if len(calls) > 0 {
			m.FunctionCalls = calls
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chats: list messages failed: %w", err)
	}
	return out, nil
}
