package repository

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/models"
)

const bucketColumns = `id, user_id, name, category, target_amount, time_limit, current_amount, schema_version, created_at, updated_at`

type BucketRepository struct {
	db *pgxpool.Pool
}

// BucketInput описывает редактируемые поля корзины.
type BucketInput struct {
	Name         string
	Category     string
	TargetAmount *decimal.Decimal
	TimeLimit    *time.Time
}

// TransferResult содержит обе корзины после перевода.
type TransferResult struct {
	From models.Bucket
	To   models.Bucket
}

// NewBucketRepository создает репозиторий корзин.
func NewBucketRepository(db *pgxpool.Pool) *BucketRepository {
	return &BucketRepository{db: db}
}

// ListByUser возвращает корзины пользователя, новые первыми.
func (r *BucketRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Bucket, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bucketColumns+`
		 FROM buckets
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make([]models.Bucket, 0)
	for rows.Next() {
		bucket, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buckets, nil
}

// GetByID возвращает корзину пользователя по идентификатору.
func (r *BucketRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (models.Bucket, error) {
	bucket, err := scanBucket(r.db.QueryRow(ctx,
		`SELECT `+bucketColumns+`
		 FROM buckets
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bucket, ErrNotFound
		}
		return bucket, err
	}

	return bucket, nil
}

// Create вставляет новую корзину с нулевым балансом.
func (r *BucketRepository) Create(ctx context.Context, userID uuid.UUID, input BucketInput) (models.Bucket, error) {
	candidate := models.Bucket{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          input.Name,
		Category:      input.Category,
		TargetAmount:  input.TargetAmount,
		TimeLimit:     input.TimeLimit,
		CurrentAmount: decimal.Zero,
	}
	if err := models.CheckRow(candidate, models.BucketSchemaVersion, models.BucketSchemaVersion); err != nil {
		return candidate, err
	}

	bucket, err := scanBucket(r.db.QueryRow(ctx,
		`INSERT INTO buckets (id, user_id, name, category, target_amount, time_limit, current_amount, schema_version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+bucketColumns,
		candidate.ID,
		candidate.UserID,
		candidate.Name,
		candidate.Category,
		candidate.TargetAmount,
		candidate.TimeLimit,
		candidate.CurrentAmount,
		models.BucketSchemaVersion,
	))
	if err != nil {
		if isCheckViolation(err) {
			return bucket, ErrInvalid
		}
		return bucket, err
	}

	return bucket, nil
}

// Update изменяет имя, категорию, цель и срок корзины.
func (r *BucketRepository) Update(ctx context.Context, userID, id uuid.UUID, input BucketInput) (models.Bucket, error) {
	candidate := models.Bucket{
		ID:           id,
		UserID:       userID,
		Name:         input.Name,
		Category:     input.Category,
		TargetAmount: input.TargetAmount,
		TimeLimit:    input.TimeLimit,
	}
	if err := models.CheckRow(candidate, models.BucketSchemaVersion, models.BucketSchemaVersion); err != nil {
		return candidate, err
	}

	bucket, err := scanBucket(r.db.QueryRow(ctx,
		`UPDATE buckets
		 SET name = $3, category = $4, target_amount = $5, time_limit = $6, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+bucketColumns,
		id, userID, input.Name, input.Category, input.TargetAmount, input.TimeLimit,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bucket, ErrNotFound
		}
		if isCheckViolation(err) {
			return bucket, ErrInvalid
		}
		return bucket, err
	}

	return bucket, nil
}

// Delete удаляет корзину пользователя.
func (r *BucketRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM buckets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Deposit пополняет корзину на положительную сумму.
func (r *BucketRepository) Deposit(ctx context.Context, userID, id uuid.UUID, amount decimal.Decimal) (models.Bucket, error) {
	if !amount.IsPositive() {
		return models.Bucket{}, ErrInvalid
	}

	bucket, err := scanBucket(r.db.QueryRow(ctx,
		`UPDATE buckets
		 SET current_amount = current_amount + $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+bucketColumns,
		id, userID, amount,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return bucket, ErrNotFound
		}
		return bucket, err
	}

	return bucket, nil
}

// Transfer переводит сумму между двумя корзинами пользователя.
func (r *BucketRepository) Transfer(ctx context.Context, userID, fromID, toID uuid.UUID, amount decimal.Decimal) (TransferResult, error) {
	result := TransferResult{}
	if fromID == toID || !amount.IsPositive() {
		return result, ErrInvalid
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	locked := make(map[uuid.UUID]models.Bucket, 2)
	for _, id := range lockOrder(fromID, toID) {
		bucket, err := scanBucket(tx.QueryRow(ctx,
			`SELECT `+bucketColumns+`
			 FROM buckets
			 WHERE id = $1 AND user_id = $2
			 FOR UPDATE`,
			id, userID,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return result, ErrNotFound
			}
			return result, err
		}
		locked[id] = bucket
	}

	from := locked[fromID]
	if from.CurrentAmount.LessThan(amount) {
		return result, ErrInsufficientFunds
	}

	result.From, err = scanBucket(tx.QueryRow(ctx,
		`UPDATE buckets
		 SET current_amount = current_amount - $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+bucketColumns,
		fromID, amount,
	))
	if err != nil {
		return result, err
	}

	result.To, err = scanBucket(tx.QueryRow(ctx,
		`UPDATE buckets
		 SET current_amount = current_amount + $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+bucketColumns,
		toID, amount,
	))
	if err != nil {
		return result, err
	}

	if err := tx.Commit(ctx); err != nil {
		return result, err
	}

	return result, nil
}

// lockOrder упорядочивает корзины по id, чтобы встречные переводы не взаимоблокировались.
func lockOrder(a, b uuid.UUID) [2]uuid.UUID {
	if bytes.Compare(a[:], b[:]) > 0 {
		return [2]uuid.UUID{b, a}
	}
	return [2]uuid.UUID{a, b}
}

func scanBucket(row pgx.Row) (models.Bucket, error) {
	var bucket models.Bucket
	var target decimal.NullDecimal
	var version int

	if err := row.Scan(
		&bucket.ID,
		&bucket.UserID,
		&bucket.Name,
		&bucket.Category,
		&target,
		&bucket.TimeLimit,
		&bucket.CurrentAmount,
		&version,
		&bucket.CreatedAt,
		&bucket.UpdatedAt,
	); err != nil {
		return bucket, err
	}

	if target.Valid {
		value := target.Decimal
		bucket.TargetAmount = &value
	}

	if err := models.CheckRow(bucket, version, models.BucketSchemaVersion); err != nil {
		return bucket, err
	}

	return bucket, nil
}
