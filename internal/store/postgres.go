// internal/store/postgres.go
//
// Postgres-backed job store. This is the only package that talks to the
// database: the workflow controller sees it through the job.Repository and
// job.DirectorySource interfaces.
//
// Two semantics matter here and are enforced in SQL rather than in Go:
//   - server-assigned timestamps: started_at/paused_at/completed_at are
//     stamped with now() evaluated by the database, not a client clock
//   - the pause accumulator is an atomic increment
//     (total_paused_ms = total_paused_ms + $n), never read back and rewritten

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tojem/floorscan/internal/job"
)

// Store implements job.Repository and job.DirectorySource over pgx.
type Store struct {
	db *pgxpool.Pool
}

// New wraps an existing pool.
func New(db *pgxpool.Pool) *Store { return &Store{db: db} }

// Open connects a pool and pings it so a bad DSN fails at startup, not on
// the first scan.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.db != nil {
		s.db.Close()
	}
}

// Init creates the tables if they are missing. Job cards themselves are
// written by the office-side card process; this only bootstraps dev
// environments.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`create table if not exists job_cards (
			id              text primary key,
			job_id          text not null,
			part_name       text not null default '',
			status          text not null default 'Pending',
			employee_id     text not null default '',
			employee_name   text not null default '',
			department_id   text not null default '',
			started_at      timestamptz,
			paused_at       timestamptz,
			completed_at    timestamptz,
			total_paused_ms bigint not null default 0
		)`,
		`create index if not exists job_cards_job_id on job_cards (job_id)`,
		`create table if not exists departments (
			id   text primary key,
			name text not null
		)`,
		`create table if not exists employees (
			id            text primary key,
			name          text not null,
			department_id text not null default ''
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

const jobColumns = `id, job_id, part_name, status, employee_id, employee_name,
	department_id, started_at, paused_at, completed_at, total_paused_ms`

// FindByJobID resolves a scanned business key to exactly one card.
// Zero rows is job.ErrNotFound; more than one is job.ErrAmbiguous — the
// query fetches two rows so ambiguity is detected without counting the
// whole table.
func (s *Store) FindByJobID(ctx context.Context, jobID string) (*job.Record, error) {
	rows, err := s.db.Query(ctx,
		`select `+jobColumns+` from job_cards where job_id = $1 limit 2`, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: find job %q: %w", jobID, err)
	}
	defer rows.Close()

	var found []job.Record
	for rows.Next() {
		var (
			rec       job.Record
			status    string
			started   *time.Time
			paused    *time.Time
			completed *time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.PartName, &status,
			&rec.EmployeeID, &rec.EmployeeName, &rec.DepartmentID,
			&started, &paused, &completed, &rec.TotalPausedMS); err != nil {
			return nil, fmt.Errorf("store: scan job row: %w", err)
		}
		rec.Status = job.Status(status)
		rec.StartedAt = started
		rec.PausedAt = paused
		rec.CompletedAt = completed
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: find job %q: %w", jobID, err)
	}
	switch len(found) {
	case 0:
		return nil, job.ErrNotFound
	case 1:
		rec := found[0]
		return &rec, nil
	default:
		return nil, job.ErrAmbiguous
	}
}

// ApplyUpdate issues a single partial update containing exactly the derived
// field set.
func (s *Store) ApplyUpdate(ctx context.Context, id string, u job.UpdateSet) error {
	set, args := updateClauses(u)
	args = append(args, id)
	query := fmt.Sprintf(`update job_cards set %s where id = $%d`,
		strings.Join(set, ", "), len(args))
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return job.ErrNotFound
	}
	return nil
}

// updateClauses translates an UpdateSet into SET clauses and their
// positional arguments. Server timestamps render as now() with no argument;
// the pause increment renders as an atomic add.
func updateClauses(u job.UpdateSet) (set []string, args []any) {
	args = append(args, string(u.Status))
	set = append(set, fmt.Sprintf("status = $%d", len(args)))
	if u.SetStartedAt {
		set = append(set, "started_at = now()")
	}
	if u.SetPausedAt {
		set = append(set, "paused_at = now()")
	}
	if u.ClearPausedAt {
		set = append(set, "paused_at = null")
	}
	if u.SetCompletedAt {
		set = append(set, "completed_at = now()")
	}
	if u.PauseIncrementMS > 0 {
		args = append(args, u.PauseIncrementMS)
		set = append(set, fmt.Sprintf("total_paused_ms = total_paused_ms + $%d", len(args)))
	}
	return set, args
}

// Assign writes the employee pair onto the card. Assignment is allowed in
// any status; the transition gating lives in the controller.
func (s *Store) Assign(ctx context.Context, id, employeeID, employeeName string) error {
	tag, err := s.db.Exec(ctx,
		`update job_cards set employee_id = $1, employee_name = $2 where id = $3`,
		employeeID, employeeName, id)
	if err != nil {
		return fmt.Errorf("store: assign job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return job.ErrNotFound
	}
	return nil
}

// Departments fetches the full department collection.
func (s *Store) Departments(ctx context.Context) ([]job.Department, error) {
	rows, err := s.db.Query(ctx, `select id, name from departments order by name`)
	if err != nil {
		return nil, fmt.Errorf("store: load departments: %w", err)
	}
	defer rows.Close()
	var out []job.Department
	for rows.Next() {
		var d job.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("store: scan department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Employees fetches the full employee collection.
func (s *Store) Employees(ctx context.Context) ([]job.Employee, error) {
	rows, err := s.db.Query(ctx, `select id, name, department_id from employees order by name`)
	if err != nil {
		return nil, fmt.Errorf("store: load employees: %w", err)
	}
	defer rows.Close()
	var out []job.Employee
	for rows.Next() {
		var e job.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.DepartmentID); err != nil {
			return nil, fmt.Errorf("store: scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
