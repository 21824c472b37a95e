package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PacketRecord is one received datagram as stored in the journal.
type PacketRecord struct {
	ID         int64
	ReceivedAt time.Time
	Sender     string
	Size       int
	Payload    string
	ParseError string
}

// EventRecord is one control-plane event as stored in the journal.
type EventRecord struct {
	ID       int64
	At       time.Time
	Category string
	Instance string
	Detail   map[string]any
}

// RecordPacket journals one received datagram.
//
// parseError is empty for well-formed commands; for rejected datagrams
// it holds the parse failure so malformed traffic can be audited later.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - sender: Remote address the datagram came from
//   - payload: Raw datagram bytes
//   - parseError: Parse failure description, or "" if the command parsed
//
// Returns:
//   - error: If the insert fails
func (s *Store) RecordPacket(ctx context.Context, sender string, payload []byte, parseError string) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO packets (received_at, sender, size, payload, parse_error)
		VALUES (?, ?, ?, ?, ?)
	`,
		time.Now().UTC().Format(time.RFC3339Nano),
		sender,
		len(payload),
		string(payload),
		parseError,
	)
	if err != nil {
		return fmt.Errorf("journalling packet: %w", err)
	}
	return nil
}

// RecordEvent journals one control-plane event.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - category: Event category (e.g. "spawn", "protocol_error")
//   - instance: Device instance name the event concerns, or "" for
//     daemon-level events
//   - detail: Structured context, stored as JSON (may be nil)
//
// Returns:
//   - error: If encoding or the insert fails
func (s *Store) RecordEvent(ctx context.Context, category, instance string, detail map[string]any) error {
	detailJSON := "{}"
	if detail != nil {
		encoded, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("encoding event detail: %w", err)
		}
		detailJSON = string(encoded)
	}

	_, err := s.ExecContext(ctx, `
		INSERT INTO events (at, category, instance, detail)
		VALUES (?, ?, ?, ?)
	`,
		time.Now().UTC().Format(time.RFC3339Nano),
		category,
		instance,
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("journalling event: %w", err)
	}
	return nil
}

// Packets returns the most recent datagram records, newest first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - limit: Maximum number of records to return
func (s *Store) Packets(ctx context.Context, limit int) ([]PacketRecord, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, received_at, sender, size, payload, parse_error
		FROM packets
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying packets: %w", err)
	}
	defer rows.Close()

	var records []PacketRecord
	for rows.Next() {
		var r PacketRecord
		var receivedAt string
		if err := rows.Scan(&r.ID, &receivedAt, &r.Sender, &r.Size, &r.Payload, &r.ParseError); err != nil {
			return nil, fmt.Errorf("scanning packet row: %w", err)
		}
		r.ReceivedAt, _ = time.Parse(time.RFC3339Nano, receivedAt) //nolint:errcheck // Format is controlled
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating packets: %w", err)
	}
	return records, nil
}

// Events returns the most recent event records, newest first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - category: Filter to one category, or "" for all
//   - limit: Maximum number of records to return
func (s *Store) Events(ctx context.Context, category string, limit int) ([]EventRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == "" {
		rows, err = s.QueryContext(ctx, `
			SELECT id, at, category, instance, detail
			FROM events
			ORDER BY id DESC
			LIMIT ?
		`, limit)
	} else {
		rows, err = s.QueryContext(ctx, `
			SELECT id, at, category, instance, detail
			FROM events
			WHERE category = ?
			ORDER BY id DESC
			LIMIT ?
		`, category, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var r EventRecord
		var at, detailJSON string
		if err := rows.Scan(&r.ID, &at, &r.Category, &r.Instance, &detailJSON); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at) //nolint:errcheck // Format is controlled
		if err := json.Unmarshal([]byte(detailJSON), &r.Detail); err != nil {
			return nil, fmt.Errorf("decoding event detail: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return records, nil
}
