package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cyberguard.org/internal/threat"
)

type threatStore Store

var _ threat.Store = (*threatStore)(nil)

const threatColumns = `id, title, description, severity, type, source_ip, target_ip, port, risk_score, status, detected_at, resolved_at, metadata`

func scanThreat(row interface{ Scan(...any) error }) (*threat.Threat, error) {
	var (
		th         threat.Threat
		targetIP   sql.NullString
		port       sql.NullInt64
		resolvedAt sql.NullTime
		rawMeta    []byte
	)
	if err := row.Scan(
		&th.ID, &th.Title, &th.Description, &th.Severity, &th.Type, &th.SourceIP,
		&targetIP, &port, &th.RiskScore, &th.Status, &th.DetectedAt, &resolvedAt, &rawMeta,
	); err != nil {
		return nil, err
	}
	if targetIP.Valid {
		th.TargetIP = targetIP.String
	}
	if port.Valid {
		th.Port = int(port.Int64)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		th.ResolvedAt = &t
	}
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &th.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &th, nil
}

func marshalMeta(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (s *threatStore) Create(ctx context.Context, th *threat.Threat) error {
	metaJSON, err := marshalMeta(th.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	var port sql.NullInt64
	if th.Port != 0 {
		port = sql.NullInt64{Int64: int64(th.Port), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		insert into threats (id, title, description, severity, type, source_ip, target_ip, port, risk_score, status, detected_at, metadata)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, th.ID, th.Title, th.Description, th.Severity, th.Type, th.SourceIP,
		nullIfEmpty(th.TargetIP), port, th.RiskScore, th.Status, th.DetectedAt, metaJSON)
	return err
}

func (s *threatStore) Find(ctx context.Context, id string) (*threat.Threat, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+threatColumns+` from threats where id = $1
	`, id)
	th, err := scanThreat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, threat.ErrNotFound
	}
	return th, err
}

func (s *threatStore) List(ctx context.Context, f threat.Filter) ([]*threat.Threat, error) {
	var (
		conds []string
		args  []any
		idx   = 1
	)
	if f.Severity != "" {
		conds = append(conds, fmt.Sprintf("severity = $%d", idx))
		args = append(args, f.Severity)
		idx++
	}
	if f.Type != "" {
		conds = append(conds, fmt.Sprintf("type = $%d", idx))
		args = append(args, f.Type)
		idx++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	query := `select ` + threatColumns + ` from threats`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, " and ")
	}
	query += ` order by detected_at desc, id desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*threat.Threat
	for rows.Next() {
		th, err := scanThreat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, th)
	}
	return result, rows.Err()
}

func (s *threatStore) Update(ctx context.Context, id string, upd threat.Update) (*threat.Threat, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", idx))
		args = append(args, *upd.Title)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, *upd.Description)
		idx++
	}
	if upd.Severity != nil {
		sets = append(sets, fmt.Sprintf("severity = $%d", idx))
		args = append(args, *upd.Severity)
		idx++
	}
	if upd.Type != nil {
		sets = append(sets, fmt.Sprintf("type = $%d", idx))
		args = append(args, *upd.Type)
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, *upd.Status)
		idx++
	}
	if upd.RiskScore != nil {
		sets = append(sets, fmt.Sprintf("risk_score = $%d", idx))
		args = append(args, *upd.RiskScore)
		idx++
	}
	if upd.Metadata != nil {
		metaJSON, err := marshalMeta(upd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		sets = append(sets, fmt.Sprintf("metadata = $%d", idx))
		args = append(args, metaJSON)
		idx++
	}
	if upd.SetResolvedAt {
		sets = append(sets, fmt.Sprintf("resolved_at = $%d", idx))
		var resolvedAt sql.NullTime
		if upd.ResolvedAt != nil {
			resolvedAt = sql.NullTime{Time: *upd.ResolvedAt, Valid: true}
		}
		args = append(args, resolvedAt)
		idx++
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update threats set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, threat.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *threatStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from threats where id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return threat.ErrNotFound
	}
	return nil
}
