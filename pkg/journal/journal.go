// Package journal keeps a local sqlite log of node lifecycle and health
// events. It is best-effort observability, not part of the registry's
// correctness: a journaling failure is logged and otherwise ignored.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS node_events(
	node_id INTEGER NOT NULL,
	event TEXT NOT NULL,
	detail TEXT,
	ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_node_events_node ON node_events(node_id);`

// Entry is one recorded node event.
type Entry struct {
	NodeID int64     `json:"nodeId"`
	Event  string    `json:"event"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

type Journal struct {
	db     *sql.DB
	logger *logrus.Entry
}

// Open creates or opens the journal database at path.
func Open(path string, logger *logrus.Entry) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, logger: logger}, nil
}

// Record appends one event. Failures are logged, not returned.
func (j *Journal) Record(ctx context.Context, nodeID int64, event, detail string) {
	if j == nil {
		return
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO node_events(node_id, event, detail, ts) VALUES(?, ?, ?, ?)`,
		nodeID, event, detail, time.Now().Unix())
	if err != nil {
		j.logger.WithError(err).Warn("journal write failed")
	}
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT node_id, event, detail, ts FROM node_events ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.NodeID, &e.Event, &e.Detail, &ts); err != nil {
			return nil, err
		}
		e.Time = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
