package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	presenceDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/presence"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/attendance-management/internal/report"
)

// ReportRepository runs the read-only aggregate queries behind the admin dashboard.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

type presenceRow struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	Date      time.Time       `db:"date"`
	ClockIn   time.Time       `db:"clock_in"`
	ClockOut  sql.NullTime    `db:"clock_out"`
	LatIn     float64         `db:"lat_in"`
	LngIn     float64         `db:"lng_in"`
	LatOut    sql.NullFloat64 `db:"lat_out"`
	LngOut    sql.NullFloat64 `db:"lng_out"`
	Status    string          `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
	UserName  sql.NullString  `db:"user_name"`
	UserEmail sql.NullString  `db:"user_email"`
}

func (r presenceRow) toDataModel() presenceDatamodel.Presence {
	p := presenceDatamodel.Presence{
		ID:        r.ID,
		UserID:    r.UserID,
		Date:      r.Date,
		ClockIn:   r.ClockIn,
		LatIn:     r.LatIn,
		LngIn:     r.LngIn,
		Status:    presenceDatamodel.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ClockOut.Valid {
		t := r.ClockOut.Time
		p.ClockOut = &t
	}
	if r.LatOut.Valid && r.LngOut.Valid {
		lat, lng := r.LatOut.Float64, r.LngOut.Float64
		p.LatOut, p.LngOut = &lat, &lng
	}
	return p
}

const presenceColumns = `p.id, p.user_id, p.date, p.clock_in, p.clock_out, p.lat_in, p.lng_in,
	p.lat_out, p.lng_out, p.status, p.created_at, p.updated_at`

func (r *ReportRepository) CountEmployees(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM users WHERE role = ?`), userDatamodel.RoleEmployee)
	return n, err
}

func (r *ReportRepository) CountPresences(ctx context.Context, from, to time.Time) (report.PresenceCounts, error) {
	query := r.db.Rebind(`
SELECT
  COUNT(*) AS total,
  COALESCE(SUM(CASE WHEN status = 'ontime' THEN 1 ELSE 0 END), 0) AS ontime,
  COALESCE(SUM(CASE WHEN status = 'late' THEN 1 ELSE 0 END), 0) AS late
FROM presences
WHERE date >= ? AND date < ?`)

	var counts report.PresenceCounts
	err := r.db.GetContext(ctx, &counts, query, from, to)
	return counts, err
}

func (r *ReportRepository) CountActiveUsers(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(DISTINCT user_id) FROM presences WHERE date >= ? AND date < ?`), from, to)
	return n, err
}

func (r *ReportRepository) ListPresences(ctx context.Context, filter report.PresenceFilter) ([]*report.PresenceRecord, int64, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID > 0 {
		conds = append(conds, "p.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conds = append(conds, "p.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.From != nil {
		conds = append(conds, "p.date >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conds = append(conds, "p.date < ?")
		args = append(args, *filter.To)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM presences p`+where), args...); err != nil {
		return nil, 0, err
	}

	query := r.db.Rebind(`SELECT ` + presenceColumns + `, u.name AS user_name, u.email AS user_email
FROM presences p
LEFT JOIN users u ON u.id = p.user_id` + where + `
ORDER BY p.date DESC, p.id DESC
LIMIT ? OFFSET ?`)

	var rows []presenceRow
	if err := r.db.SelectContext(ctx, &rows, query, append(args, filter.Limit, filter.Offset())...); err != nil {
		return nil, 0, err
	}

	out := make([]*report.PresenceRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, &report.PresenceRecord{
			Presence:  row.toDataModel(),
			UserName:  row.UserName.String,
			UserEmail: row.UserEmail.String,
		})
	}
	return out, total, nil
}

func (r *ReportRepository) ListEmployees(ctx context.Context) ([]report.Employee, error) {
	var employees []report.Employee
	err := r.db.SelectContext(ctx, &employees,
		r.db.Rebind(`SELECT id, name, email FROM users WHERE role = ? ORDER BY name ASC, id ASC`),
		userDatamodel.RoleEmployee)
	return employees, err
}

func (r *ReportRepository) PresencesInRange(ctx context.Context, from, to time.Time) ([]*presenceDatamodel.Presence, error) {
	query := r.db.Rebind(`SELECT ` + presenceColumns + `
FROM presences p
WHERE p.date >= ? AND p.date < ?
ORDER BY p.user_id ASC, p.date ASC`)

	var rows []presenceRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, err
	}

	out := make([]*presenceDatamodel.Presence, 0, len(rows))
	for _, row := range rows {
		p := row.toDataModel()
		out = append(out, &p)
	}
	return out, nil
}
