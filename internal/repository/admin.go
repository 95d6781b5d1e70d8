package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

type AdminUser struct {
	ID                  uuid.UUID
	Email               string
	OnboardingCompleted bool
	Buckets             int
	Rules               int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NarrationFilter сужает журнал пересказов плана.
type NarrationFilter struct {
	UserID   *uuid.UUID
	Success  *bool
	Provider *string
}

// Narration одна запись журнала пересказов. Narrative берется из response_payload,
// Prompt заполняется только по запросу.
type Narration struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Provider     string
	Model        string
	Success      bool
	ErrorMessage *string
	Narrative    *string
	Prompt       *string
	CreatedAt    time.Time
}

type DailyCount struct {
	Day   time.Time
	Count int
}

type UsageStats struct {
	Users           int
	Onboarded       int
	Buckets         int
	Rules           int
	EnabledRules    int
	Narrations      int
	Rephrased       int
	Fallbacks       int
	NarrationsByDay []DailyCount
}

// NewAdminRepository создает репозиторий для админских запросов.
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListUsers возвращает страницу пользователей с числом корзин и правил.
func (r *AdminRepository) ListUsers(ctx context.Context, limit, offset int) ([]AdminUser, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.email, COALESCE(p.onboarding_completed, FALSE),
		        (SELECT COUNT(*) FROM buckets b WHERE b.user_id = u.id),
		        (SELECT COUNT(*) FROM rules rl WHERE rl.user_id = u.id),
		        u.created_at, u.updated_at
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 ORDER BY u.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]AdminUser, 0)
	for rows.Next() {
		var user AdminUser
		if err := rows.Scan(&user.ID, &user.Email, &user.OnboardingCompleted, &user.Buckets, &user.Rules, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// CountUsers возвращает общее количество пользователей.
func (r *AdminRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// ListNarrations возвращает страницу журнала пересказов и общее число записей по фильтру.
func (r *AdminRepository) ListNarrations(ctx context.Context, filter NarrationFilter, limit, offset int, withPrompt bool) ([]Narration, int, error) {
	where, args := narrationWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ai_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, withPrompt, limit, offset)
	n := len(args)
	query := fmt.Sprintf(
		`SELECT id, user_id, provider, model, success, error_message,
		        response_payload->>'narrative',
		        CASE WHEN $%d::boolean THEN prompt END,
		        created_at
		 FROM ai_requests%s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		n-2, where, n-1, n,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	narrations := make([]Narration, 0)
	for rows.Next() {
		var item Narration
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Provider,
			&item.Model,
			&item.Success,
			&item.ErrorMessage,
			&item.Narrative,
			&item.Prompt,
			&item.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		narrations = append(narrations, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return narrations, total, nil
}

// UsageStats собирает счетчики по пользователям, корзинам, правилам и пересказам
// и число пересказов по дням за последние days дней, включая дни без обращений.
func (r *AdminRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	if err := r.db.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM users),
		        (SELECT COUNT(*) FROM profiles WHERE onboarding_completed),
		        (SELECT COUNT(*) FROM buckets),
		        (SELECT COUNT(*) FROM rules),
		        (SELECT COUNT(*) FROM rules WHERE enabled),
		        COUNT(*),
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE NOT success)
		 FROM ai_requests
		 WHERE request_type = $1`,
		RequestTypeNarrative,
	).Scan(
		&stats.Users,
		&stats.Onboarded,
		&stats.Buckets,
		&stats.Rules,
		&stats.EnabledRules,
		&stats.Narrations,
		&stats.Rephrased,
		&stats.Fallbacks,
	); err != nil {
		return stats, err
	}

	from, to := usageWindow(time.Now(), days)
	rows, err := r.db.Query(ctx,
		`SELECT (d AT TIME ZONE 'UTC')::date, COUNT(a.id)
		 FROM generate_series($2::timestamptz, $3::timestamptz, INTERVAL '1 day') AS d
		 LEFT JOIN ai_requests a
		        ON a.request_type = $1
		       AND a.created_at >= d
		       AND a.created_at < d + INTERVAL '1 day'
		 GROUP BY d
		 ORDER BY d`,
		RequestTypeNarrative, from, to,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.NarrationsByDay = make([]DailyCount, 0, days)
	for rows.Next() {
		var row DailyCount
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return stats, err
		}
		stats.NarrationsByDay = append(stats.NarrationsByDay, row)
	}

	return stats, rows.Err()
}

// usageWindow возвращает первый и последний календарный день (UTC) окна из days дней.
func usageWindow(now time.Time, days int) (time.Time, time.Time) {
	now = now.UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -(days - 1)), to
}

func narrationWhere(filter NarrationFilter) (string, []interface{}) {
	args := []interface{}{RequestTypeNarrative}
	clauses := []string{"request_type = $1"}

	add := func(column string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.UserID != nil {
		add("user_id", *filter.UserID)
	}
	if filter.Success != nil {
		add("success", *filter.Success)
	}
	if filter.Provider != nil {
		add("provider", strings.ToLower(*filter.Provider))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
