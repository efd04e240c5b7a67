package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/duskchat/dusk-node/internal/protocol"
)

// DMConversation is the metadata row for one direct-message conversation.
type DMConversation struct {
	ConversationID     string `json:"conversation_id"`
	PeerID             string `json:"peer_id"`
	PeerDisplayName    string `json:"peer_display_name"`
	LastMessagePreview string `json:"last_message_preview"`
	LastMessageTime    int64  `json:"last_message_time"`
	UnreadCount        int    `json:"unread_count"`
}

// MediaClass enumerates the search_dm_messages media filters.
type MediaClass string

const (
	MediaImages MediaClass = "images"
	MediaVideos MediaClass = "videos"
	MediaLinks  MediaClass = "links"
	MediaFiles  MediaClass = "files"
)

var mediaExtensions = map[MediaClass][]string{
	MediaImages: {".png", ".jpg", ".jpeg", ".gif", ".webp"},
	MediaVideos: {".mp4", ".webm", ".mov", ".mkv"},
	MediaFiles:  {".pdf", ".zip", ".txt", ".doc", ".docx"},
}

// SearchDMParams narrows search_dm_messages.
type SearchDMParams struct {
	Query        string
	SenderID     string
	MentionsOnly bool
	Since        int64 // inclusive, 0 = unbounded
	Until        int64 // exclusive, 0 = unbounded
	Media        MediaClass
	Limit        int
}

// AppendDMMessage creates a placeholder conversation row if absent, then
// inserts msg under conv_id — idempotent on a duplicate msg.ID — and mirrors
// (id, conv_id, content) into the FTS index on first insert.
func (s *Store) AppendDMMessage(convID string, msg protocol.DirectMessage, peerDisplayName string) error {
	ctx, cancel := opContext()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin append dm message: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM dm_conversations WHERE conversation_id = ?`, convID).Scan(&exists); err != nil {
		return fmt.Errorf("storage: check conversation %s: %w", convID, err)
	}
	if exists == 0 {
		otherPeer := msg.FromPeer
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dm_conversations (conversation_id, peer_id, peer_display_name, last_message_preview, last_message_time, unread_count)
			 VALUES (?, ?, ?, '', 0, 0)`, convID, otherPeer, peerDisplayName)
		if err != nil {
			return fmt.Errorf("storage: create placeholder conversation %s: %w", convID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO dm_messages (id, conversation_id, sender_id, content, timestamp, mentions)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, convID, msg.FromPeer, msg.Content, msg.Timestamp, extractMentions(msg.Content))
	if err != nil {
		return fmt.Errorf("storage: insert dm message %s: %w", msg.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: rows affected for dm message %s: %w", msg.ID, err)
	}
	if rows > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO dm_message_fts (message_id, conversation_id, content) VALUES (?, ?, ?)`,
			msg.ID, convID, msg.Content)
		if err != nil {
			return fmt.Errorf("storage: mirror dm message %s into fts: %w", msg.ID, err)
		}
	}
	return tx.Commit()
}

// extractMentions returns a space-joined list of peer IDs referenced as
// "<@peer_id>" in content, stored in dm_messages.mentions. The mentions_only
// search filter matches on content instead and does not read this column.
func extractMentions(content string) string {
	var mentions []string
	for {
		start := strings.Index(content, "<@")
		if start < 0 {
			break
		}
		end := strings.Index(content[start:], ">")
		if end < 0 {
			break
		}
		mentions = append(mentions, content[start+2:start+end])
		content = content[start+end+1:]
	}
	return strings.Join(mentions, " ")
}

// LoadDMMessages returns messages with timestamp < before (if given),
// most-recent-first internally but returned in chronological order.
func (s *Store) LoadDMMessages(convID string, before *int64, limit int) ([]protocol.DirectMessage, error) {
	ctx, cancel := opContext()
	defer cancel()

	query := `SELECT id, sender_id, content, timestamp FROM dm_messages WHERE conversation_id = ?`
	args := []any{convID}
	if before != nil {
		query += ` AND timestamp < ?`
		args = append(args, *before)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: load dm messages %s: %w", convID, err)
	}
	defer rows.Close()

	var out []protocol.DirectMessage
	for rows.Next() {
		var m protocol.DirectMessage
		if err := rows.Scan(&m.ID, &m.FromPeer, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("storage: scan dm message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SearchDMMessages filters a conversation's messages by the given params.
// limit is clamped to [1, 1000].
func (s *Store) SearchDMMessages(convID string, params SearchDMParams) ([]protocol.DirectMessage, error) {
	limit := params.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	ctx, cancel := opContext()
	defer cancel()

	var query string
	args := []any{}

	if params.Query != "" {
		query = `SELECT m.id, m.sender_id, m.content, m.timestamp FROM dm_messages m
		         JOIN dm_message_fts f ON f.message_id = m.id
		         WHERE m.conversation_id = ? AND f.content MATCH ?`
		args = append(args, convID, ftsQuery(params.Query))
	} else {
		query = `SELECT m.id, m.sender_id, m.content, m.timestamp FROM dm_messages m WHERE m.conversation_id = ?`
		args = append(args, convID)
	}

	if params.SenderID != "" {
		query += ` AND m.sender_id = ?`
		args = append(args, params.SenderID)
	}
	if params.MentionsOnly {
		query += ` AND m.content LIKE '%<@%'`
	}
	if params.Since != 0 {
		query += ` AND m.timestamp >= ?`
		args = append(args, params.Since)
	}
	if params.Until != 0 {
		query += ` AND m.timestamp < ?`
		args = append(args, params.Until)
	}
	if params.Media != "" {
		clause, mediaArgs := mediaClassClause("m.content", params.Media)
		query += clause
		args = append(args, mediaArgs...)
	}

	query += ` ORDER BY m.timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: search dm messages %s: %w", convID, err)
	}
	defer rows.Close()

	var out []protocol.DirectMessage
	for rows.Next() {
		var m protocol.DirectMessage
		if err := rows.Scan(&m.ID, &m.FromPeer, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("storage: scan dm message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ftsQuery turns a free-text query into an FTS5 prefix-match expression:
// each token becomes "token*", ANDed together.
func ftsQuery(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		fields[i] = f + "*"
	}
	return strings.Join(fields, " AND ")
}

// mediaClassClause builds a SQL LIKE clause matching a media class against
// extension or URL substrings, per the media-class filter contract.
func mediaClassClause(col string, class MediaClass) (string, []any) {
	if class == MediaLinks {
		return fmt.Sprintf(" AND (%s LIKE '%%http://%%' OR %s LIKE '%%https://%%')", col, col), nil
	}
	exts, ok := mediaExtensions[class]
	if !ok {
		return "", nil
	}
	var parts []string
	var args []any
	for _, ext := range exts {
		parts = append(parts, fmt.Sprintf("%s LIKE ?", col))
		args = append(args, "%"+ext)
	}
	return " AND (" + strings.Join(parts, " OR ") + ")", args
}

// SaveDMConversation persists conversation metadata wholesale.
func (s *Store) SaveDMConversation(c DMConversation) error {
	ctx, cancel := opContext()
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dm_conversations (conversation_id, peer_id, peer_display_name, last_message_preview, last_message_time, unread_count)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(conversation_id) DO UPDATE SET
		   peer_id = excluded.peer_id,
		   peer_display_name = excluded.peer_display_name,
		   last_message_preview = excluded.last_message_preview,
		   last_message_time = excluded.last_message_time,
		   unread_count = excluded.unread_count`,
		c.ConversationID, c.PeerID, c.PeerDisplayName, c.LastMessagePreview, c.LastMessageTime, c.UnreadCount)
	if err != nil {
		return fmt.Errorf("storage: save dm conversation %s: %w", c.ConversationID, err)
	}
	return nil
}

// LoadDMConversation returns one conversation row, or ErrNotFound if absent.
func (s *Store) LoadDMConversation(convID string) (DMConversation, error) {
	ctx, cancel := opContext()
	defer cancel()
	var c DMConversation
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, peer_id, peer_display_name, last_message_preview, last_message_time, unread_count
		 FROM dm_conversations WHERE conversation_id = ?`, convID,
	).Scan(&c.ConversationID, &c.PeerID, &c.PeerDisplayName, &c.LastMessagePreview, &c.LastMessageTime, &c.UnreadCount)
	if errors.Is(err, sql.ErrNoRows) {
		return DMConversation{}, ErrNotFound
	}
	if err != nil {
		return DMConversation{}, fmt.Errorf("storage: load dm conversation %s: %w", convID, err)
	}
	return c, nil
}

// RemoveDMConversation deletes a conversation row and its messages.
func (s *Store) RemoveDMConversation(convID string) error {
	ctx, cancel := opContext()
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin remove dm conversation: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM dm_conversations WHERE conversation_id = ?`, convID); err != nil {
		return fmt.Errorf("storage: remove dm conversation %s: %w", convID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dm_messages WHERE conversation_id = ?`, convID); err != nil {
		return fmt.Errorf("storage: remove dm messages %s: %w", convID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dm_message_fts WHERE conversation_id = ?`, convID); err != nil {
		return fmt.Errorf("storage: remove dm fts rows %s: %w", convID, err)
	}
	return tx.Commit()
}

// LoadAllDMConversations returns every conversation, sorted by
// last_message_time desc then peer_display_name asc.
func (s *Store) LoadAllDMConversations() ([]DMConversation, error) {
	ctx, cancel := opContext()
	defer cancel()
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, peer_id, peer_display_name, last_message_preview, last_message_time, unread_count
		 FROM dm_conversations ORDER BY last_message_time DESC, peer_display_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: load all dm conversations: %w", err)
	}
	defer rows.Close()

	var out []DMConversation
	for rows.Next() {
		var c DMConversation
		if err := rows.Scan(&c.ConversationID, &c.PeerID, &c.PeerDisplayName, &c.LastMessagePreview, &c.LastMessageTime, &c.UnreadCount); err != nil {
			return nil, fmt.Errorf("storage: scan dm conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
