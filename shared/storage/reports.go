package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insight-stack/internal/models"
)

// InsertReport appends a report to the write-once history and fills in the
// generated id and creation time.
func (s *Store) InsertReport(ctx context.Context, report *models.Report) error {
	if report == nil {
		return errors.New("report is required")
	}
	trendsJSON, err := encodeList(report.KeyTrends)
	if err != nil {
		return err
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (
            report_type, title, content, summary, key_trends_json,
            market_sentiment, range_start, range_end, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ReportType,
		report.Title,
		report.Content,
		report.Summary,
		trendsJSON,
		report.MarketSentiment,
		formatTime(report.RangeStart),
		formatTime(report.RangeEnd),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	report.ID = id
	report.CreatedAt = now
	return nil
}

// ListReports returns recent reports, newest first, optionally filtered by type.
func (s *Store) ListReports(ctx context.Context, reportType string, limit int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, report_type, title, content, summary, key_trends_json,
                     market_sentiment, range_start, range_end, created_at
              FROM reports`
	args := []any{}
	if reportType != "" {
		query += ` WHERE report_type = ?`
		args = append(args, reportType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		var (
			report    models.Report
			trendsRaw string
			startRaw  string
			endRaw    string
			createdAt string
		)
		if err := rows.Scan(
			&report.ID,
			&report.ReportType,
			&report.Title,
			&report.Content,
			&report.Summary,
			&trendsRaw,
			&report.MarketSentiment,
			&startRaw,
			&endRaw,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		report.KeyTrends = decodeList(trendsRaw)
		if t, err := parseTimeString(startRaw); err == nil {
			report.RangeStart = t
		}
		if t, err := parseTimeString(endRaw); err == nil {
			report.RangeEnd = t
		}
		if t, err := parseTimeString(createdAt); err == nil {
			report.CreatedAt = t
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}
