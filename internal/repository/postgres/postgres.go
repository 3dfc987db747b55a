package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/jserrlog/internal/domain"
	"github.com/splax/jserrlog/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var _ repository.ErrorRepository = (*Repository)(nil)

// InsertError persists a captured error and fills in the assigned ID.
// The id comes from the table's BIGSERIAL sequence, so concurrent inserts
// never collide.
func (r *Repository) InsertError(ctx context.Context, record *domain.ErrorRecord) error {
	const query = `INSERT INTO error_reports (timestamp, message, source, lineno, colno, stack, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query,
		record.Timestamp, record.Message, record.Source, record.Lineno,
		record.Colno, record.Stack, record.UserAgent, record.IPAddress)
	return row.Scan(&record.ID)
}

// ListErrors fetches every stored error, newest first. Ordering is computed
// at read time; the table carries no secondary index.
func (r *Repository) ListErrors(ctx context.Context) ([]domain.ErrorRecord, error) {
	const query = `SELECT id, timestamp, message, source, lineno, colno, stack, user_agent, ip_address
		FROM error_reports ORDER BY timestamp DESC, id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ErrorRecord
	for rows.Next() {
		var rec domain.ErrorRecord
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Message, &rec.Source,
			&rec.Lineno, &rec.Colno, &rec.Stack, &rec.UserAgent, &rec.IPAddress); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClearErrors drops every stored record. TRUNCATE is not ordered against
// concurrent inserts; an append racing a clear may land on either side.
func (r *Repository) ClearErrors(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE TABLE error_reports`)
	return err
}

// CountErrors reports the number of stored records.
func (r *Repository) CountErrors(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM error_reports`).Scan(&count)
	return count, err
}
