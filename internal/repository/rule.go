package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fintant/backend/internal/models"
)

const ruleColumns = `id, user_id, name, trigger, action, enabled, schema_version, created_at, updated_at`

type RuleRepository struct {
	db *pgxpool.Pool
}

// RuleInput описывает редактируемые поля правила.
type RuleInput struct {
	Name    string
	Trigger string
	Action  string
	Enabled bool
}

// NewRuleRepository создает репозиторий правил.
func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListByUser возвращает правила пользователя, новые первыми.
func (r *RuleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Rule, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ruleColumns+`
		 FROM rules
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]models.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}

// Create вставляет новое правило.
func (r *RuleRepository) Create(ctx context.Context, userID uuid.UUID, input RuleInput) (models.Rule, error) {
	candidate := models.Rule{
		ID:      uuid.New(),
		UserID:  userID,
		Name:    input.Name,
		Trigger: input.Trigger,
		Action:  input.Action,
		Enabled: input.Enabled,
	}
	if err := models.CheckRow(candidate, models.RuleSchemaVersion, models.RuleSchemaVersion); err != nil {
		return candidate, err
	}

	rule, err := scanRule(r.db.QueryRow(ctx,
		`INSERT INTO rules (id, user_id, name, trigger, action, enabled, schema_version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+ruleColumns,
		candidate.ID, candidate.UserID, candidate.Name, candidate.Trigger, candidate.Action, candidate.Enabled, models.RuleSchemaVersion,
	))
	if err != nil {
		if isCheckViolation(err) {
			return rule, ErrInvalid
		}
		return rule, err
	}

	return rule, nil
}

// Update изменяет правило пользователя.
func (r *RuleRepository) Update(ctx context.Context, userID, id uuid.UUID, input RuleInput) (models.Rule, error) {
	candidate := models.Rule{ID: id, UserID: userID, Name: input.Name, Trigger: input.Trigger, Action: input.Action}
	if err := models.CheckRow(candidate, models.RuleSchemaVersion, models.RuleSchemaVersion); err != nil {
		return candidate, err
	}

	rule, err := scanRule(r.db.QueryRow(ctx,
		`UPDATE rules
		 SET name = $3, trigger = $4, action = $5, enabled = $6, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+ruleColumns,
		id, userID, input.Name, input.Trigger, input.Action, input.Enabled,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rule, ErrNotFound
		}
		return rule, err
	}

	return rule, nil
}

// Toggle переключает флаг enabled правила.
func (r *RuleRepository) Toggle(ctx context.Context, userID, id uuid.UUID) (models.Rule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx,
		`UPDATE rules
		 SET enabled = NOT enabled, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+ruleColumns,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rule, ErrNotFound
		}
		return rule, err
	}

	return rule, nil
}

// Delete удаляет правило пользователя.
func (r *RuleRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM rules WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanRule(row pgx.Row) (models.Rule, error) {
	var rule models.Rule
	var version int

	if err := row.Scan(
		&rule.ID,
		&rule.UserID,
		&rule.Name,
		&rule.Trigger,
		&rule.Action,
		&rule.Enabled,
		&version,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return rule, err
	}

	if err := models.CheckRow(rule, version, models.RuleSchemaVersion); err != nil {
		return rule, err
	}

	return rule, nil
}
