package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lshigami/compliance/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// legacyTrainingRecordRepository maps training records onto the wide
// employee table, one column pair per training. Column names are built only
// from whitelisted codes and are always quoted by the dialect.
type legacyTrainingRecordRepository struct {
	db        *gorm.DB
	whitelist *CodeWhitelist
	table     string
	keyColumn string
	columns   LegacyColumns
}

func NewLegacyTrainingRecordRepository(db *gorm.DB, whitelist *CodeWhitelist, table, keyColumn, prefix string) TrainingRecordRepository {
	return &legacyTrainingRecordRepository{
		db:        db,
		whitelist: whitelist,
		table:     table,
		keyColumn: keyColumn,
		columns:   LegacyColumns{Prefix: prefix},
	}
}

func (r *legacyTrainingRecordRepository) WithTx(tx *gorm.DB) TrainingRecordRepository {
	cp := *r
	cp.db = tx
	return &cp
}

func (r *legacyTrainingRecordRepository) byKey(userID uint) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: r.keyColumn}, Value: userID}
}

func (r *legacyTrainingRecordRepository) Get(ctx context.Context, userID uint, def *model.TrainingDefinition) (*model.TrainingRecord, error) {
	if err := r.whitelist.Validate(def.Code); err != nil {
		return nil, err
	}
	lastCol, reqCol := r.columns.LastCompleted(def.Code), r.columns.Required(def.Code)

	var rows []map[string]interface{}
	err := r.db.WithContext(ctx).Table(r.table).
		Clauses(clause.Select{Columns: []clause.Column{{Name: lastCol}, {Name: reqCol}}}).
		Where(r.byKey(userID)).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	record := &model.TrainingRecord{UserID: userID, TrainingCode: def.Code}
	if len(rows) == 0 {
		return record, nil
	}
	last, err := asTime(rows[0][lastCol])
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", lastCol, err)
	}
	required, err := asBool(rows[0][reqCol])
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", reqCol, err)
	}
	record.LastCompletedAt = last
	record.NextDueAt = model.NextDue(last, def.ValidityMonths)
	record.Required = required
	return record, nil
}

func (r *legacyTrainingRecordRepository) MarkCompleted(ctx context.Context, userID uint, def *model.TrainingDefinition, at time.Time) (*model.TrainingRecord, error) {
	if err := r.whitelist.Validate(def.Code); err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Table(r.table).
		Where(r.byKey(userID)).
		Updates(map[string]interface{}{r.columns.LastCompleted(def.Code): at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("no legacy employee row for user %d", userID)
	}
	return r.Get(ctx, userID, def)
}

func (r *legacyTrainingRecordRepository) SetRequired(ctx context.Context, userID uint, code string, required bool) error {
	if err := r.whitelist.Validate(code); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Table(r.table).
		Where(r.byKey(userID)).
		Updates(map[string]interface{}{r.columns.Required(code): required})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no legacy employee row for user %d", userID)
	}
	return nil
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asTime normalizes whatever the driver hands back for a date column.
func asTime(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if t.IsZero() {
			return nil, nil
		}
		return &t, nil
	case *time.Time:
		return t, nil
	case []byte:
		return asTime(string(t))
	case string:
		if t == "" {
			return nil, nil
		}
		for _, layout := range legacyTimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed, nil
			}
		}
		return nil, fmt.Errorf("unrecognized date %q", t)
	default:
		return nil, fmt.Errorf("unsupported date type %T", v)
	}
}

func asBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	case int32:
		return b != 0, nil
	case int:
		return b != 0, nil
	case []byte:
		return asBool(string(b))
	case string:
		s := strings.TrimSpace(strings.ToLower(b))
		if s == "" {
			return false, nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n != 0, nil
		}
		return strconv.ParseBool(s)
	default:
		return false, fmt.Errorf("unsupported flag type %T", v)
	}
}
