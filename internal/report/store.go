package report

import (
	"context"

	"backend-lanewatch/internal/db"
	"backend-lanewatch/pkg/e"

	"github.com/jackc/pgx/v5/pgtype"
)

// Store persists reports and warnings. Every call commits on its own;
// nothing is assumed about atomicity across calls.
type Store interface {
	InsertReport(ctx context.Context, r Report) (Report, error)
	DeleteReport(ctx context.Context, id int64) error
	InsertWarning(ctx context.Context, w Warning) (Warning, error)
	DeleteWarning(ctx context.Context, id int64) error
	ListReportsByOwner(ctx context.Context, userID int64) ([]Report, error)
}

type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(db db.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertReport(ctx context.Context, r Report) (Report, error) {
	const op = "report.PostgresStore.InsertReport"

	row := s.db.QueryRow(ctx, `
		INSERT INTO reports (user_id, start_lat, start_lng, end_lat, end_lng, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, r.UserID, *r.StartLat, *r.StartLng, *r.EndLat, *r.EndLng, r.CreatedAt)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return Report{}, e.WrapError(ctx, op, err)
	}
	return r, nil
}

func (s *PostgresStore) DeleteReport(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM reports WHERE id=$1`, id)
	return e.WrapError(ctx, "report.PostgresStore.DeleteReport", err)
}

func (s *PostgresStore) InsertWarning(ctx context.Context, w Warning) (Warning, error) {
	const op = "report.PostgresStore.InsertWarning"

	row := s.db.QueryRow(ctx, `
		INSERT INTO warnings (report_id, text, lat, lng, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, w.ReportID, w.Text, *w.Lat, *w.Lng, w.CreatedAt)
	if err := row.Scan(&w.ID, &w.CreatedAt); err != nil {
		return Warning{}, e.WrapError(ctx, op, err)
	}
	return w, nil
}

func (s *PostgresStore) DeleteWarning(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM warnings WHERE id=$1`, id)
	return e.WrapError(ctx, "report.PostgresStore.DeleteWarning", err)
}

// ListReportsByOwner returns the owner's reports, newest first, each with
// its warnings in insertion order.
func (s *PostgresStore) ListReportsByOwner(ctx context.Context, userID int64) ([]Report, error) {
	const op = "report.PostgresStore.ListReportsByOwner"

	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.user_id, r.start_lat, r.start_lng, r.end_lat, r.end_lng, r.created_at,
		       w.id, w.text, w.lat, w.lng, w.created_at
		FROM reports r
		LEFT JOIN warnings w ON w.report_id = r.id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id DESC, w.id
	`, userID)
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	reports := []Report{}
	index := map[int64]int{}
	for rows.Next() {
		var (
			r                      Report
			startLat, startLng     float64
			endLat, endLng         float64
			warningID, warningTime pgtype.Int8
			text                   pgtype.Text
			lat, lng               pgtype.Float8
		)
		if err := rows.Scan(&r.ID, &r.UserID, &startLat, &startLng, &endLat, &endLng, &r.CreatedAt,
			&warningID, &text, &lat, &lng, &warningTime); err != nil {
			return nil, e.WrapError(ctx, op, err)
		}

		pos, seen := index[r.ID]
		if !seen {
			r.StartLat, r.StartLng = Coord(startLat), Coord(startLng)
			r.EndLat, r.EndLng = Coord(endLat), Coord(endLng)
			r.Warnings = []Warning{}
			reports = append(reports, r)
			pos = len(reports) - 1
			index[r.ID] = pos
		}

		if warningID.Valid {
			reports[pos].Warnings = append(reports[pos].Warnings, Warning{
				ID:        warningID.Int64,
				ReportID:  r.ID,
				Text:      text.String,
				Lat:       Coord(lat.Float64),
				Lng:       Coord(lng.Float64),
				CreatedAt: warningTime.Int64,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return reports, nil
}
