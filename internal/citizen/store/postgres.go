package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"civreg/internal/citizen/models"
	"civreg/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// Postgres persists citizen records in PostgreSQL. Uniqueness of snils and
// inn is enforced by the database, which is the correct place to avoid races
// between concurrent creates.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed citizen store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the citizens table and its indexes if they do not
// exist. This is the full extent of migration tooling for this service.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS citizens (
			id BIGSERIAL PRIMARY KEY,
			full_name VARCHAR(256) NOT NULL,
			snils VARCHAR(14),
			inn VARCHAR(12),
			birth_date DATE NOT NULL,
			death_date DATE
		)`,
		// varchar_pattern_ops makes the index usable for prefix LIKE scans.
		`CREATE INDEX IF NOT EXISTS citizens_full_name_idx ON citizens (full_name varchar_pattern_ops)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS citizens_snils_key ON citizens (snils)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS citizens_inn_key ON citizens (inn)`,
		`CREATE INDEX IF NOT EXISTS citizens_birth_date_idx ON citizens (birth_date)`,
		`CREATE INDEX IF NOT EXISTS citizens_death_date_idx ON citizens (death_date)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const citizenColumns = "id, full_name, snils, inn, birth_date, death_date"

func (p *Postgres) FindByID(ctx context.Context, id int64) (models.Citizen, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+citizenColumns+` FROM citizens WHERE id = $1`, id)
	c, err := scanCitizen(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Citizen{}, sentinel.ErrNotFound
		}
		return models.Citizen{}, fmt.Errorf("find citizen by id: %w", err)
	}
	return c, nil
}

func (p *Postgres) Create(ctx context.Context, c models.Citizen) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO citizens (full_name, snils, inn, birth_date, death_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		c.FullName, nullString(c.Snils), nullString(c.Inn),
		c.BirthDate.Time(), nullDate(c.DeathDate),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, sentinel.ErrConflict
		}
		return 0, fmt.Errorf("create citizen: %w", err)
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, c models.Citizen) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE citizens
		 SET full_name = $1, snils = $2, inn = $3, birth_date = $4, death_date = $5
		 WHERE id = $6`,
		c.FullName, nullString(c.Snils), nullString(c.Inn),
		c.BirthDate.Time(), nullDate(c.DeathDate), c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update citizen: %w", err)
	}
	return requireAffected(res, "update citizen")
}

func (p *Postgres) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM citizens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete citizen: %w", err)
	}
	return requireAffected(res, "delete citizen")
}

// Find assembles a parameterized WHERE clause from the criteria: prefix
// conditions become escaped LIKE patterns, date conditions become equality.
// Results are ordered by id so paging windows are stable across calls.
func (p *Postgres) Find(ctx context.Context, crit Criteria) ([]models.Citizen, error) {
	var (
		conds []string
		args  []any
	)
	addCond := func(expr string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if crit.FullNamePrefix != "" {
		addCond("full_name LIKE $%d", likePrefix(crit.FullNamePrefix))
	}
	if crit.SnilsPrefix != "" {
		addCond("snils LIKE $%d", likePrefix(crit.SnilsPrefix))
	}
	if crit.InnPrefix != "" {
		addCond("inn LIKE $%d", likePrefix(crit.InnPrefix))
	}
	if crit.BirthDate != nil {
		addCond("birth_date = $%d", crit.BirthDate.Time())
	}
	if crit.DeathDate != nil {
		addCond("death_date = $%d", crit.DeathDate.Time())
	}

	query := `SELECT ` + citizenColumns + ` FROM citizens`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"
	if crit.Page != nil {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, crit.Page.Size, crit.Page.offset())
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find citizens: %w", err)
	}
	defer rows.Close()

	citizens := make([]models.Citizen, 0)
	for rows.Next() {
		c, err := scanCitizen(rows)
		if err != nil {
			return nil, fmt.Errorf("find citizens: %w", err)
		}
		citizens = append(citizens, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find citizens: %w", err)
	}
	return citizens, nil
}

// CreateBatch inserts all records in one statement inside a transaction,
// using unnest so a 5000-row seed or import is a single round trip. Any
// constraint violation rolls back the whole batch.
func (p *Postgres) CreateBatch(ctx context.Context, cs []models.Citizen) error {
	if len(cs) == 0 {
		return nil
	}

	fullNames := make([]string, len(cs))
	snils := make([]sql.NullString, len(cs))
	inns := make([]sql.NullString, len(cs))
	birthDates := make([]time.Time, len(cs))
	deathDates := make([]sql.NullTime, len(cs))
	for i, c := range cs {
		fullNames[i] = c.FullName
		snils[i] = nullString(c.Snils)
		inns[i] = nullString(c.Inn)
		birthDates[i] = c.BirthDate.Time()
		deathDates[i] = nullDate(c.DeathDate)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create citizens: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO citizens (full_name, snils, inn, birth_date, death_date)
		 SELECT * FROM unnest($1::varchar[], $2::varchar[], $3::varchar[], $4::date[], $5::date[])`,
		pq.Array(fullNames), pq.Array(snils), pq.Array(inns),
		pq.Array(birthDates), pq.Array(deathDates),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create citizens: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create citizens: commit: %w", err)
	}
	return nil
}

func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citizens`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count citizens: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCitizen(row rowScanner) (models.Citizen, error) {
	var (
		c         models.Citizen
		snils     sql.NullString
		inn       sql.NullString
		birthDate time.Time
		deathDate sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.FullName, &snils, &inn, &birthDate, &deathDate); err != nil {
		return models.Citizen{}, err
	}
	c.Snils = snils.String
	c.Inn = inn.String
	c.BirthDate = models.DateOf(birthDate)
	if deathDate.Valid {
		d := models.DateOf(deathDate.Time)
		c.DeathDate = &d
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d *models.Date) sql.NullTime {
	if d == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time(), Valid: true}
}

// likePrefix turns a raw prefix into a LIKE pattern, escaping the pattern
// metacharacters so user input always matches literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
