package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Overview(ctx context.Context, year int) (Overview, error) {
	out := Overview{Year: year}
	err := s.DB.QueryRow(ctx, `
    SELECT count(*),
           count(*) FILTER (WHERE status = 'pending'),
           count(*) FILTER (WHERE status = 'approved'),
           count(*) FILTER (WHERE status = 'rejected'),
           count(*) FILTER (WHERE status = 'cancelled'),
           COALESCE(sum(total_days) FILTER (WHERE status = 'approved'), 0)::text,
           COALESCE(sum(total_days) FILTER (WHERE status = 'pending'), 0)::text
    FROM leave_requests
    WHERE EXTRACT(YEAR FROM start_date) = $1
  `, year).Scan(&out.TotalRequests, &out.Statuses.Pending, &out.Statuses.Approved,
		&out.Statuses.Rejected, &out.Statuses.Cancelled, &out.DaysTaken, &out.DaysPending)
	if err != nil {
		return Overview{}, err
	}
	err = s.DB.QueryRow(ctx, "SELECT count(*) FROM users WHERE is_active").Scan(&out.ActiveEmployees)
	return out, err
}

func (s *Store) ByType(ctx context.Context, year int) ([]TypeUsage, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT lt.id, lt.name, lt.code,
           count(r.id),
           COALESCE(sum(r.total_days) FILTER (WHERE r.status = 'approved'), 0)::text
    FROM leave_types lt
    LEFT JOIN leave_requests r
      ON r.leave_type_id = lt.id AND EXTRACT(YEAR FROM r.start_date) = $1
    GROUP BY lt.id
    ORDER BY lt.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypeUsage
	for rows.Next() {
		var u TypeUsage
		if err := rows.Scan(&u.LeaveTypeID, &u.Name, &u.Code, &u.Requests, &u.DaysTaken); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) ByDepartment(ctx context.Context, year int) ([]DepartmentUsage, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT d.id, d.name,
           count(r.id),
           COALESCE(sum(r.total_days) FILTER (WHERE r.status = 'approved'), 0)::text
    FROM departments d
    LEFT JOIN users u ON u.department_id = d.id
    LEFT JOIN leave_requests r
      ON r.user_id = u.id AND EXTRACT(YEAR FROM r.start_date) = $1
    GROUP BY d.id
    ORDER BY d.name
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DepartmentUsage
	for rows.Next() {
		var u DepartmentUsage
		if err := rows.Scan(&u.DepartmentID, &u.Name, &u.Requests, &u.DaysTaken); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) Monthly(ctx context.Context, year int) ([]MonthlyUsage, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT EXTRACT(MONTH FROM start_date)::int,
           count(*),
           COALESCE(sum(total_days), 0)::text
    FROM leave_requests
    WHERE status = 'approved' AND EXTRACT(YEAR FROM start_date) = $1
    GROUP BY 1
    ORDER BY 1
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMonth := make(map[int]MonthlyUsage)
	for rows.Next() {
		var u MonthlyUsage
		if err := rows.Scan(&u.Month, &u.Requests, &u.DaysTaken); err != nil {
			return nil, err
		}
		byMonth[u.Month] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]MonthlyUsage, 0, 12)
	for month := 1; month <= 12; month++ {
		if u, ok := byMonth[month]; ok {
			out = append(out, u)
			continue
		}
		out = append(out, MonthlyUsage{Month: month, DaysTaken: "0"})
	}
	return out, nil
}

func (s *Store) TopTakers(ctx context.Context, year, limit int) ([]TopTaker, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id, u.first_name || ' ' || u.last_name,
           count(r.id),
           sum(r.total_days)::text
    FROM leave_requests r
    JOIN users u ON u.id = r.user_id
    WHERE r.status = 'approved' AND EXTRACT(YEAR FROM r.start_date) = $1
    GROUP BY u.id
    ORDER BY sum(r.total_days) DESC
    LIMIT $2
  `, year, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopTaker
	for rows.Next() {
		var t TopTaker
		if err := rows.Scan(&t.UserID, &t.Name, &t.Requests, &t.DaysTaken); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ExportRows(ctx context.Context, year int) ([]ExportRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.first_name || ' ' || u.last_name, lt.name,
           to_char(r.start_date, 'YYYY-MM-DD'), to_char(r.end_date, 'YYYY-MM-DD'),
           r.total_days::text, r.status, r.reason
    FROM leave_requests r
    JOIN users u ON u.id = r.user_id
    JOIN leave_types lt ON lt.id = r.leave_type_id
    WHERE EXTRACT(YEAR FROM r.start_date) = $1
    ORDER BY r.start_date
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		if err := rows.Scan(&r.Employee, &r.Type, &r.StartDate, &r.EndDate, &r.TotalDays, &r.Status, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
