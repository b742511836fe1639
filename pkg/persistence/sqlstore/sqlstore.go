// Package sqlstore implements persistence.Sink against database/sql,
// grounded on the teacher's cbox sql managers (pkg/cbox/preferences/sql,
// pkg/cbox/share/sql): a mapstructure-tagged config struct, a single
// *sql.DB, one Exec or Query call per operation. Retries use
// cenkalti/backoff the way the teacher's grace/http retry code does.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/nimbusgate/accessgraph/pkg/persistence"
)

// Config selects the SQL driver and connection string for one tenant's
// durable store.
type Config struct {
	Driver           string `mapstructure:"store_driver"` // "mysql" or "sqlite3"
	ConnectionString string `mapstructure:"connection_string"`
	MaxRetries       int    `mapstructure:"max_retries"`
}

// Store is a database/sql-backed persistence.Sink.
type Store struct {
	tenantID   string
	db         *sql.DB
	maxRetries int
}

// Open opens the database and ensures the schema exists.
func Open(tenantID string, cfg Config) (*Store, error) {
	if cfg.Driver == "" {
		return nil, errors.New("sqlstore: driver must be set")
	}
	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, errors.Wrap(err, "sqlstore: error opening database")
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	s := &Store{tenantID: tenantID, db: db, maxRetries: retries}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			id INTEGER PRIMARY KEY,
			tenant_id VARCHAR(128) NOT NULL,
			variant INTEGER NOT NULL,
			name VARCHAR(255) NOT NULL,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			tenant_id VARCHAR(128) NOT NULL,
			parent_id INTEGER NOT NULL,
			child_id INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS permissions (
			id INTEGER PRIMARY KEY,
			tenant_id VARCHAR(128) NOT NULL,
			entity_id INTEGER NOT NULL,
			uri VARCHAR(1024) NOT NULL,
			verb INTEGER NOT NULL,
			polarity INTEGER NOT NULL,
			scheme INTEGER NOT NULL,
			expiry_unix BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			tenant_id VARCHAR(128) NOT NULL,
			kind VARCHAR(64) NOT NULL,
			success BOOLEAN NOT NULL,
			error_kind VARCHAR(64),
			at_unix BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "sqlstore: error creating schema")
		}
	}
	return nil
}

// withRetry wraps op in an exponential backoff retry loop, per spec
// §4.7's write-behind retry policy: 1s initial interval, up to
// maxRetries retries after the first attempt. ctx is checked before
// each attempt rather than
// threaded into the backoff.BackOff itself, matching the plain
// backoff.Retry(op, b) call the teacher's event stream reconnect logic
// uses.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	bounded := backoff.WithMaxRetries(b, uint64(s.maxRetries))
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return op()
	}, bounded)
}

// PersistMutation writes one applied mutation's resulting row state.
// Rather than replaying arbitrary command payloads, it dispatches on
// Kind to the handful of row shapes that matter for a snapshot rebuild;
// query and control commands are not persisted. The upsert statements
// use SQLite's ON CONFLICT...DO UPDATE syntax; a mysql-backed tenant
// needs the equivalent ON DUPLICATE KEY UPDATE form instead, which this
// driver-agnostic SQL does not yet branch on.
func (s *Store) PersistMutation(ctx context.Context, rec persistence.MutationRecord) error {
	return s.withRetry(ctx, func() error {
		return s.applyMutation(rec)
	})
}

func (s *Store) applyMutation(rec persistence.MutationRecord) error {
	switch p := rec.Payload.(type) {
	case persistence.EntityUpsert:
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(`INSERT INTO entities(id, tenant_id, variant, name, metadata) VALUES(?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name=excluded.name, metadata=excluded.metadata`,
			p.ID, rec.TenantID, p.Variant, p.Name, string(meta))
		return err
	case persistence.EntityDelete:
		_, err := s.db.Exec(`DELETE FROM entities WHERE id=? AND tenant_id=?`, p.ID, rec.TenantID)
		return err
	case persistence.EdgeUpsert:
		_, err := s.db.Exec(`INSERT INTO edges(tenant_id, parent_id, child_id) VALUES(?, ?, ?)`, rec.TenantID, p.ParentID, p.ChildID)
		return err
	case persistence.EdgeDelete:
		_, err := s.db.Exec(`DELETE FROM edges WHERE tenant_id=? AND parent_id=? AND child_id=?`, rec.TenantID, p.ParentID, p.ChildID)
		return err
	case persistence.PermissionUpsert:
		_, err := s.db.Exec(`INSERT INTO permissions(id, tenant_id, entity_id, uri, verb, polarity, scheme, expiry_unix) VALUES(?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET entity_id=excluded.entity_id, uri=excluded.uri, verb=excluded.verb, polarity=excluded.polarity, scheme=excluded.scheme, expiry_unix=excluded.expiry_unix`,
			p.ID, rec.TenantID, p.EntityID, p.URI, p.Verb, p.Polarity, p.Scheme, p.ExpiryUnix)
		return err
	case persistence.PermissionDelete:
		_, err := s.db.Exec(`DELETE FROM permissions WHERE id=? AND tenant_id=?`, p.ID, rec.TenantID)
		return err
	default:
		return errors.Errorf("sqlstore: unrecognized mutation payload for kind %s", rec.Kind)
	}
}

// AppendAuditRecord writes one audit row.
func (s *Store) AppendAuditRecord(ctx context.Context, rec persistence.AuditRecord) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.Exec(`INSERT INTO audit_log(tenant_id, kind, success, error_kind, at_unix) VALUES(?, ?, ?, ?, ?)`,
			rec.TenantID, string(rec.Kind), rec.Success, rec.ErrorKind, rec.At.Unix())
		return err
	})
}

// LoadTenantSnapshot reads every row for tenantID back into a
// persistence.TenantSnapshot for the hydration engine.
func (s *Store) LoadTenantSnapshot(ctx context.Context, tenantID string) (*persistence.TenantSnapshot, error) {
	snap := &persistence.TenantSnapshot{}

	erows, err := s.db.QueryContext(ctx, `SELECT id, variant, name, metadata FROM entities WHERE tenant_id=?`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlstore: error loading entities")
	}
	defer erows.Close()
	for erows.Next() {
		var e persistence.EntitySnapshot
		var metaRaw sql.NullString
		if err := erows.Scan(&e.ID, &e.Variant, &e.Name, &metaRaw); err != nil {
			return nil, err
		}
		e.Metadata = map[string]string{}
		if metaRaw.Valid && metaRaw.String != "" {
			if err := json.Unmarshal([]byte(metaRaw.String), &e.Metadata); err != nil {
				return nil, errors.Wrap(err, "sqlstore: error decoding entity metadata")
			}
		}
		snap.Entities = append(snap.Entities, e)
	}
	if err := erows.Err(); err != nil {
		return nil, err
	}

	grows, err := s.db.QueryContext(ctx, `SELECT parent_id, child_id FROM edges WHERE tenant_id=?`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlstore: error loading edges")
	}
	defer grows.Close()
	for grows.Next() {
		var e persistence.EdgeSnapshot
		if err := grows.Scan(&e.ParentID, &e.ChildID); err != nil {
			return nil, err
		}
		snap.Edges = append(snap.Edges, e)
	}
	if err := grows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.db.QueryContext(ctx, `SELECT id, entity_id, uri, verb, polarity, scheme, expiry_unix FROM permissions WHERE tenant_id=?`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlstore: error loading permissions")
	}
	defer prows.Close()
	for prows.Next() {
		var p persistence.PermissionSnapshot
		var expiry sql.NullInt64
		if err := prows.Scan(&p.ID, &p.EntityID, &p.URI, &p.Verb, &p.Polarity, &p.Scheme, &expiry); err != nil {
			return nil, err
		}
		if expiry.Valid {
			v := expiry.Int64
			p.ExpiryUnix = &v
		}
		snap.Permissions = append(snap.Permissions, p)
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

// Close releases the underlying *sql.DB.
func (s *Store) Close() error { return s.db.Close() }
