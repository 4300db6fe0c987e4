package messagelog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/hl7engine/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const msgCols = `id, control_id, sending_app, sending_facility, receiving_app,
	receiving_facility, message_type, trigger_event, structure, version,
	ack_code, raw, received_at`

func (r *repoPG) scanRow(row pgx.Row) (*Record, error) {
	var m Record
	err := row.Scan(&m.ID, &m.ControlID, &m.SendingApp, &m.SendingFacility, &m.ReceivingApp,
		&m.ReceivingFacility, &m.MessageType, &m.TriggerEvent, &m.Structure, &m.Version,
		&m.AckCode, &m.Raw, &m.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Record) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hl7_messages (id, control_id, sending_app, sending_facility, receiving_app,
			receiving_facility, message_type, trigger_event, structure, version,
			ack_code, raw, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		m.ID, m.ControlID, m.SendingApp, m.SendingFacility, m.ReceivingApp,
		m.ReceivingFacility, m.MessageType, m.TriggerEvent, m.Structure, m.Version,
		m.AckCode, m.Raw, m.ReceivedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+msgCols+` FROM hl7_messages WHERE id = $1`, id))
}

func (r *repoPG) GetByControlID(ctx context.Context, sendingApp, controlID string) (*Record, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+msgCols+` FROM hl7_messages
		WHERE sending_app = $1 AND control_id = $2
		ORDER BY received_at DESC LIMIT 1`, sendingApp, controlID))
}

func (r *repoPG) HasAccepted(ctx context.Context, sendingApp, controlID string) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM hl7_messages
		WHERE sending_app = $1 AND control_id = $2 AND ack_code IN ('AA', 'CA'))`,
		sendingApp, controlID).Scan(&ok)
	return ok, err
}

// where renders f as a WHERE clause with positional arguments.
func (f ListFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("message_type", f.MessageType)
	add("sending_app", f.SendingApp)
	add("ack_code", f.AckCode)
	add("control_id", f.ControlID)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	where, args := f.where()

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hl7_messages`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM hl7_messages%s ORDER BY received_at DESC LIMIT $%d OFFSET $%d`,
		msgCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		m, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
