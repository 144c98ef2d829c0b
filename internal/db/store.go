package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stic_os/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, status, service_type, equipment_type, description, unit, requester, responsible, priority, opened_at, finalized_at, rule_id, created_date, created_at`

func scanOrder(row pgx.Row) (models.ServiceOrder, error) {
	var o models.ServiceOrder
	err := row.Scan(&o.ID, &o.Status, &o.ServiceType, &o.EquipmentType, &o.Description, &o.Unit, &o.Requester, &o.Responsible, &o.Priority, &o.OpenedAt, &o.FinalizedAt, &o.RuleID, &o.CreatedDate, &o.CreatedAt)
	return o, err
}

func (s *Store) CreateOrder(ctx context.Context, o models.ServiceOrder) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO service_orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, o.ID, o.Status, o.ServiceType, o.EquipmentType, o.Description, o.Unit, o.Requester, o.Responsible, o.Priority, o.OpenedAt, o.FinalizedAt, o.RuleID, o.CreatedDate, o.CreatedAt)
	return err
}

// CreateRecurringOrder inserts the order a recurrence rule spawned for today.
// The deterministic composite ID carries the uniqueness guarantee: a conflict
// means another run already created today's order, reported as created=false.
func (s *Store) CreateRecurringOrder(ctx context.Context, o models.ServiceOrder) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO service_orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING
	`, o.ID, o.Status, o.ServiceType, o.EquipmentType, o.Description, o.Unit, o.Requester, o.Responsible, o.Priority, o.OpenedAt, o.FinalizedAt, o.RuleID, o.CreatedDate, o.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) OrderExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM service_orders WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.ServiceOrder, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM service_orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (s *Store) ListOrders(ctx context.Context, status, unit, q string, limit, offset int) ([]models.ServiceOrder, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + orderColumns + ` FROM service_orders`
	var args []any
	var wheres []string
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if unit != "" {
		args = append(args, unit)
		wheres = append(wheres, fmt.Sprintf("unit = $%d", len(args)))
	}
	if q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("(description ILIKE $%d OR id ILIKE $%d OR responsible ILIKE $%d)", len(args), len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ServiceOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetOrdersForAggregation fetches the full record set for one period; both
// bounds are optional. No pagination: the aggregator needs every record.
func (s *Store) GetOrdersForAggregation(ctx context.Context, from, to *time.Time) ([]models.ServiceOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM service_orders`
	var args []any
	var wheres []string
	if from != nil {
		args = append(args, *from)
		wheres = append(wheres, fmt.Sprintf("opened_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		wheres = append(wheres, fmt.Sprintf("opened_at < $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ServiceOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id, status string, finalizedAt *time.Time) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE service_orders SET status = $1, finalized_at = COALESCE($2, finalized_at) WHERE id = $3`, status, finalizedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) InsertOrders(ctx context.Context, orders []models.ServiceOrder) (int64, error) {
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{o.ID, o.Status, o.ServiceType, o.EquipmentType, o.Description, o.Unit, o.Requester, o.Responsible, o.Priority, o.OpenedAt, o.FinalizedAt, o.RuleID, o.CreatedDate, o.CreatedAt})
	}
	copyCount, err := s.Pool.CopyFrom(ctx, pgx.Identifier{"service_orders"}, []string{"id", "status", "service_type", "equipment_type", "description", "unit", "requester", "responsible", "priority", "opened_at", "finalized_at", "rule_id", "created_date", "created_at"}, pgx.CopyFromRows(rows))
	return copyCount, err
}

const ruleColumns = `id, active, days_of_week, start_time, service_type, description, unit, priority, created_at, updated_at`

func (s *Store) ListRules(ctx context.Context) ([]models.RecurrenceRule, error) {
	return s.listRules(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules ORDER BY created_at ASC`)
}

func (s *Store) ListActiveRules(ctx context.Context) ([]models.RecurrenceRule, error) {
	return s.listRules(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules WHERE active ORDER BY created_at ASC`)
}

func (s *Store) listRules(ctx context.Context, query string) ([]models.RecurrenceRule, error) {
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RecurrenceRule
	for rows.Next() {
		var r models.RecurrenceRule
		if err := rows.Scan(&r.ID, &r.Active, &r.DaysOfWeek, &r.StartTime, &r.ServiceType, &r.Description, &r.Unit, &r.Priority, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRule(ctx context.Context, r models.RecurrenceRule) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO recurrence_rules (`+ruleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, r.ID, r.Active, r.DaysOfWeek, r.StartTime, r.ServiceType, r.Description, r.Unit, r.Priority, r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *Store) UpdateRule(ctx context.Context, r models.RecurrenceRule) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE recurrence_rules
		SET active = $1, days_of_week = $2, start_time = $3, service_type = $4, description = $5, unit = $6, priority = $7, updated_at = NOW()
		WHERE id = $8
	`, r.Active, r.DaysOfWeek, r.StartTime, r.ServiceType, r.Description, r.Unit, r.Priority, r.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM recurrence_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) InsertMovement(ctx context.Context, m models.MaterialMovement) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO material_movements (id, order_id, direction, material, quantity, receiver, signature_ref, moved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, m.ID, m.OrderID, m.Direction, m.Material, m.Quantity, m.Receiver, m.SignatureRef, m.MovedAt)
	return err
}

func (s *Store) ListMovements(ctx context.Context, orderID string) ([]models.MaterialMovement, error) {
	query := `SELECT id, order_id, direction, material, quantity, receiver, signature_ref, moved_at FROM material_movements`
	var args []any
	if orderID != "" {
		query += ` WHERE order_id = $1`
		args = append(args, orderID)
	}
	query += ` ORDER BY moved_at DESC`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MaterialMovement
	for rows.Next() {
		var m models.MaterialMovement
		if err := rows.Scan(&m.ID, &m.OrderID, &m.Direction, &m.Material, &m.Quantity, &m.Receiver, &m.SignatureRef, &m.MovedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) InsertActivity(ctx context.Context, e models.ActivityEntry) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO activity_log (id, actor, action, subject, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.Actor, e.Action, e.Subject, e.Detail, e.CreatedAt)
	return err
}

func (s *Store) ListActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, actor, action, subject, detail, created_at FROM activity_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Subject, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateRun(ctx context.Context, status string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `INSERT INTO runs (status, started_at) VALUES ($1, NOW()) RETURNING id`, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var r models.Run
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Summary)
	return r, err
}
