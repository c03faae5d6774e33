package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"cyberguard.org/internal/audit"
)

type auditStore Store

var _ audit.Store = (*auditStore)(nil)

func (s *auditStore) Append(ctx context.Context, ev *audit.Event) error {
	metaJSON, err := marshalMeta(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_events (id, identity_id, event_type, description, source_ip, user_agent, status, ts, metadata)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, nullIfEmpty(ev.IdentityID), ev.EventType, ev.Description,
		ev.SourceIP, nullIfEmpty(ev.UserAgent), ev.Status, ev.Timestamp, metaJSON)
	return err
}

func (s *auditStore) List(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	var (
		conds []string
		args  []any
		idx   = 1
	)
	if f.EventType != "" {
		conds = append(conds, fmt.Sprintf("event_type = $%d", idx))
		args = append(args, f.EventType)
		idx++
	}
	if f.IdentityID != "" {
		conds = append(conds, fmt.Sprintf("identity_id = $%d", idx))
		args = append(args, f.IdentityID)
		idx++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	query := `select id, identity_id, event_type, description, source_ip, user_agent, status, ts, metadata from audit_events`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, " and ")
	}
	query += ` order by ts desc, id desc`
	if f.Limit > 0 {
		query += fmt.Sprintf(` limit $%d`, idx)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Event
	for rows.Next() {
		var (
			ev         audit.Event
			identityID sql.NullString
			userAgent  sql.NullString
			rawMeta    []byte
		)
		if err := rows.Scan(&ev.ID, &identityID, &ev.EventType, &ev.Description,
			&ev.SourceIP, &userAgent, &ev.Status, &ev.Timestamp, &rawMeta); err != nil {
			return nil, err
		}
		if identityID.Valid {
			ev.IdentityID = identityID.String
		}
		if userAgent.Valid {
			ev.UserAgent = userAgent.String
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}
