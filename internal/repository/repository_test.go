package repository

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/models"
)

type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, target := range dest {
		reflect.ValueOf(target).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func bucketRow(name string, target decimal.NullDecimal, version int) fakeRow {
	now := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)
	return fakeRow{values: []interface{}{
		uuid.New(),
		uuid.New(),
		name,
		"Vacation",
		target,
		(*time.Time)(nil),
		decimal.NewFromInt(250),
		version,
		now,
		now,
	}}
}

// TestScanBucketTarget проверяет перенос цели из NULL-колонки.
func TestScanBucketTarget(t *testing.T) {
	bucket, err := scanBucket(bucketRow("Trip", decimal.NewNullDecimal(decimal.NewFromInt(1000)), models.BucketSchemaVersion))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if bucket.TargetAmount == nil || !bucket.TargetAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected target 1000, got %v", bucket.TargetAmount)
	}

	bucket, err = scanBucket(bucketRow("Trip", decimal.NullDecimal{}, models.BucketSchemaVersion))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if bucket.TargetAmount != nil {
		t.Fatalf("expected no target, got %v", bucket.TargetAmount)
	}
}

// TestScanBucketSchemaDrift проверяет, что чужая версия схемы и битая строка дают ErrSchema.
func TestScanBucketSchemaDrift(t *testing.T) {
	if _, err := scanBucket(bucketRow("Trip", decimal.NullDecimal{}, models.BucketSchemaVersion+1)); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema for version drift, got %v", err)
	}

	if _, err := scanBucket(bucketRow("", decimal.NullDecimal{}, models.BucketSchemaVersion)); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema for empty name, got %v", err)
	}

	scanErr := errors.New("boom")
	if _, err := scanBucket(fakeRow{err: scanErr}); !errors.Is(err, scanErr) {
		t.Fatalf("expected scan error, got %v", err)
	}
}

// TestScanRuleSchemaDrift проверяет версию схемы правила.
func TestScanRuleSchemaDrift(t *testing.T) {
	now := time.Now()
	row := func(version int) fakeRow {
		return fakeRow{values: []interface{}{uuid.New(), uuid.New(), "Round up", "Card payment", "Save change", true, version, now, now}}
	}

	rule, err := scanRule(row(models.RuleSchemaVersion))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !rule.Enabled || rule.Trigger != "Card payment" {
		t.Fatalf("unexpected rule %+v", rule)
	}

	if _, err := scanRule(row(models.RuleSchemaVersion + 1)); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

// TestLockOrder проверяет, что порядок блокировки не зависит от направления перевода.
func TestLockOrder(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	forward := lockOrder(low, high)
	backward := lockOrder(high, low)

	if forward != backward {
		t.Fatalf("expected same order, got %v and %v", forward, backward)
	}
	if forward[0] != low {
		t.Fatalf("expected lower id first, got %v", forward[0])
	}
}

// TestNarrationWhere проверяет сборку условий журнала пересказов.
func TestNarrationWhere(t *testing.T) {
	where, args := narrationWhere(NarrationFilter{})
	if where != " WHERE request_type = $1" {
		t.Fatalf("unexpected where %q", where)
	}
	if len(args) != 1 || args[0] != RequestTypeNarrative {
		t.Fatalf("unexpected args %v", args)
	}

	userID := uuid.New()
	success := false
	provider := "Groq"
	where, args = narrationWhere(NarrationFilter{UserID: &userID, Success: &success, Provider: &provider})

	expected := " WHERE request_type = $1 AND user_id = $2 AND success = $3 AND provider = $4"
	if where != expected {
		t.Fatalf("expected %q, got %q", expected, where)
	}
	if len(args) != 4 || args[1] != userID || args[2] != false || args[3] != "groq" {
		t.Fatalf("unexpected args %v", args)
	}
	if strings.Count(where, "$") != len(args) {
		t.Fatalf("placeholders do not match args: %q %v", where, args)
	}
}

// TestUsageWindow проверяет границы окна статистики в днях UTC.
func TestUsageWindow(t *testing.T) {
	now := time.Date(2025, time.October, 1, 23, 30, 0, 0, time.FixedZone("MSK", 3*60*60))

	from, to := usageWindow(now, 7)

	if !to.Equal(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", to)
	}
	if !from.Equal(time.Date(2025, time.September, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", from)
	}

	from, to = usageWindow(now, 1)
	if !from.Equal(to) {
		t.Fatalf("expected single day, got %v..%v", from, to)
	}
}
