package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/nerrad567/homebus/internal/protocol"
)

// ErrEntryNotFound is returned when an acknowledgement matches no pending entry.
var ErrEntryNotFound = errors.New("audit: entry not found")

const (
	// Fixed width keeps sent_at ordering lexicographic.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"

	defaultLimit = 50
	maxLimit     = 200

	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	breakerInterval = time.Minute
)

// Logger defines the logging interface used by the Trail.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Entry is one row of the command trail.
type Entry struct {
	ID     string `json:"id"`
	RunID  string `json:"run_id"`
	Device string `json:"device"`

	// CommandID is nil for one-way commands.
	CommandID *int64  `json:"command_id,omitempty"`
	Command   string  `json:"command"`
	Value     *string `json:"value,omitempty"`
	Origin    string  `json:"origin"`

	SentAt         time.Time  `json:"sent_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ReplyValue     *string    `json:"reply_value,omitempty"`
}

// Filter controls which entries List returns.
type Filter struct {
	Device  string // optional: only this device
	Origin  string // optional: request or profile
	Pending bool   // only entries still awaiting an acknowledgement
	Limit   int    // default 50, max 200
	Offset  int
}

// ListResult is one page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Trail writes and reads the command_log table.
type Trail struct {
	db     *sql.DB
	runID  string
	cb     *gobreaker.CircuitBreaker
	logger Logger
	now    func() time.Time
}

// NewTrail creates a Trail for one coordinator run.
//
// Parameters:
//   - db: Migrated homebus database
//   - logger: Receives dropped-write warnings; nil discards them
func NewTrail(db *sql.DB, logger Logger) *Trail {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Trail{
		db:     db,
		runID:  uuid.NewString(),
		cb:     newBreaker("audit-trail"),
		logger: logger,
		now:    time.Now,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: breakerInterval,
		Timeout:  breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerFailures
		},
	})
}

// RunID identifies the coordinator run this Trail records.
func (t *Trail) RunID() string {
	return t.runID
}

// Record inserts an entry. ID, RunID and SentAt are filled in when empty.
func (t *Trail) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "aud-" + uuid.NewString()
	}
	if e.RunID == "" {
		e.RunID = t.runID
	}
	if e.SentAt.IsZero() {
		e.SentAt = t.now().UTC()
	}

	_, err := t.cb.Execute(func() (any, error) {
		return t.db.ExecContext(ctx,
			`INSERT INTO command_log (id, run_id, command_id, device, command, value, origin, sent_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.RunID, e.CommandID, e.Device, e.Command, e.Value, e.Origin,
			e.SentAt.UTC().Format(timeLayout),
		)
	})
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}
	return nil
}

// Acknowledge stamps the pending entry for id in this run with the reply.
func (t *Trail) Acknowledge(ctx context.Context, id protocol.CommandID, reply protocol.Command) error {
	res, err := t.cb.Execute(func() (any, error) {
		return t.db.ExecContext(ctx,
			`UPDATE command_log SET acknowledged_at = ?, reply_value = ?
			 WHERE run_id = ? AND command_id = ? AND acknowledged_at IS NULL`,
			t.now().UTC().Format(timeLayout), reply.Value, t.runID, int64(id),
		)
	})
	if err != nil {
		return fmt.Errorf("updating command log entry: %w", err)
	}
	n, err := res.(sql.Result).RowsAffected()
	if err != nil {
		return fmt.Errorf("updating command log entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: command %d", ErrEntryNotFound, id)
	}
	return nil
}

// CommandSent records an outbound command. Failures are logged and dropped.
func (t *Trail) CommandSent(ctx context.Context, id protocol.CommandID, target string, cmd protocol.Command, origin string) {
	e := &Entry{
		Device:  target,
		Command: cmd.Name,
		Value:   cmd.Value,
		Origin:  origin,
	}
	if id != protocol.NullCommandID {
		v := int64(id)
		e.CommandID = &v
	}
	if err := t.Record(ctx, e); err != nil {
		t.logger.Warn("command not recorded",
			"device", target, "command", cmd.Name, "breaker", t.cb.State().String(), "error", err)
	}
}

// CommandAcknowledged stamps the acknowledgement. Failures are logged and dropped.
func (t *Trail) CommandAcknowledged(ctx context.Context, id protocol.CommandID, reply protocol.Command) {
	err := t.Acknowledge(ctx, id, reply)
	switch {
	case err == nil:
	case errors.Is(err, ErrEntryNotFound):
		t.logger.Debug("acknowledgement has no trail entry", "id", id)
	default:
		t.logger.Warn("acknowledgement not recorded",
			"id", id, "breaker", t.cb.State().String(), "error", err)
	}
}

// List returns entries matching the filter, most recent first.
func (t *Trail) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Device != "" {
		conditions = append(conditions, "device = ?")
		args = append(args, filter.Device)
	}
	if filter.Origin != "" {
		conditions = append(conditions, "origin = ?")
		args = append(args, filter.Origin)
	}
	if filter.Pending {
		conditions = append(conditions, "command_id IS NOT NULL AND acknowledged_at IS NULL")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM command_log " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := t.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	query := `SELECT id, run_id, command_id, device, command, value, origin, sent_at, acknowledged_at, reply_value
		FROM command_log ` + where + ` ORDER BY sent_at DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // as above
	args = append(args, filter.Limit, filter.Offset)

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var commandID sql.NullInt64
	var value, ackAt, reply sql.NullString
	var sentAt string

	if err := rows.Scan(&e.ID, &e.RunID, &commandID, &e.Device, &e.Command,
		&value, &e.Origin, &sentAt, &ackAt, &reply); err != nil {
		return Entry{}, fmt.Errorf("scanning command log entry: %w", err)
	}

	if commandID.Valid {
		e.CommandID = &commandID.Int64
	}
	if value.Valid {
		e.Value = &value.String
	}
	if reply.Valid {
		e.ReplyValue = &reply.String
	}

	t, err := time.Parse(timeLayout, sentAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing sent_at %q: %w", sentAt, err)
	}
	e.SentAt = t

	if ackAt.Valid {
		t, err := time.Parse(timeLayout, ackAt.String)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing acknowledged_at %q: %w", ackAt.String, err)
		}
		e.AcknowledgedAt = &t
	}
	return e, nil
}
