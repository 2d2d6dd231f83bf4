package storage

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"trendpush/pkg/logx"
)

// sqlStore implements Store over database/sql. The same statements serve
// SQLite and PostgreSQL; only the placeholder style differs.
type sqlStore struct {
	db  *sql.DB
	log logx.Logger
	// ph renders the i-th (1-based) bind placeholder.
	ph func(i int) string
}

func questionMark(int) string { return "?" }

func dollar(i int) string { return "$" + strconv.Itoa(i) }

func (s *sqlStore) migrate(ctx context.Context, ddl string) error {
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) HasPushed(ctx context.Context, reportType, day string) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrDisabled
	}
	if err := validKey(reportType, day); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM push_records WHERE report_type = `+s.ph(1)+` AND day = `+s.ph(2),
		reportType, day,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqlStore) RecordPush(ctx context.Context, rec PushRecord) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrDisabled
	}
	if err := validKey(rec.ReportType, rec.Day); err != nil {
		return false, err
	}
	if rec.PushedAt.IsZero() {
		rec.PushedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO push_records(report_type, day, pushed_at) VALUES(`+s.ph(1)+`,`+s.ph(2)+`,`+s.ph(3)+`)
		 ON CONFLICT (report_type, day) DO NOTHING`,
		rec.ReportType, rec.Day, rec.PushedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqlStore) Prune(ctx context.Context, before string) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM push_records WHERE day < `+s.ph(1), before)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
