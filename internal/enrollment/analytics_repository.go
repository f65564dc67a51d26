package enrollment

import (
	"context"
	"time"

	"github.com/Gio21sr/oberfit/internal/apperr"
)

type OccupancyByDay struct {
	Bucket             string `db:"bucket" json:"bucket"`
	MemberEnrollments  int    `db:"member_enrollments" json:"member_enrollments"`
	VisitorEnrollments int    `db:"visitor_enrollments" json:"visitor_enrollments"`
}

type OccupancyByClass struct {
	ClassID            int       `db:"class_id" json:"class_id"`
	ClassName          string    `db:"class_name" json:"class_name"`
	StartTime          time.Time `db:"start_time" json:"start_time"`
	MaxCapacity        int       `db:"max_capacity" json:"max_capacity"`
	AvailableSeats     int       `db:"available_seats" json:"available_seats"`
	MemberEnrollments  int       `db:"member_enrollments" json:"member_enrollments"`
	VisitorEnrollments int       `db:"visitor_enrollments" json:"visitor_enrollments"`
}

type OccupancyReport struct {
	From    time.Time          `json:"from"`
	To      time.Time          `json:"to"`
	ByDay   []OccupancyByDay   `json:"by_day"`
	ByClass []OccupancyByClass `json:"by_class"`
}

// OccupancyByDay counts enrollments registered in [from, to), bucketed by
// gym-local day.
func (r *repository) OccupancyByDay(ctx context.Context, from, to time.Time) ([]OccupancyByDay, error) {
	const op = "enrollment.OccupancyByDay"

	query := `
WITH all_enrollments AS (
  SELECT registered_at, 'member' AS kind FROM enrollments
  UNION ALL
  SELECT registered_at, 'visitor' AS kind FROM visitor_enrollments
)
SELECT
  TO_CHAR(registered_at AT TIME ZONE 'UTC' - INTERVAL '6 hours', 'YYYY-MM-DD') AS bucket,
  COUNT(*) FILTER (WHERE kind = 'member')  AS member_enrollments,
  COUNT(*) FILTER (WHERE kind = 'visitor') AS visitor_enrollments
FROM all_enrollments
WHERE registered_at >= $1 AND registered_at < $2
GROUP BY bucket
ORDER BY bucket;
`
	stats := []OccupancyByDay{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return stats, nil
}

// OccupancyByClass reports fill per class starting in [from, to).
func (r *repository) OccupancyByClass(ctx context.Context, from, to time.Time) ([]OccupancyByClass, error) {
	const op = "enrollment.OccupancyByClass"

	query := `
SELECT
  c.id              AS class_id,
  c.name            AS class_name,
  c.start_time      AS start_time,
  c.max_capacity    AS max_capacity,
  c.available_seats AS available_seats,
  (SELECT COUNT(*) FROM enrollments e WHERE e.class_id = c.id)         AS member_enrollments,
  (SELECT COUNT(*) FROM visitor_enrollments v WHERE v.class_id = c.id) AS visitor_enrollments
FROM classes c
WHERE c.start_time >= $1 AND c.start_time < $2
ORDER BY c.start_time, c.id;
`
	stats := []OccupancyByClass{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return stats, nil
}
