package crud

import (
	"fmt"

	"gorm.io/gorm"

	"poetryHub/domain"
	"poetryHub/errs"
)

// CounterLedger is the only writer of denormalized counters.
// It never reads a counter; every change is one relative UPDATE that clamps at zero,
// so concurrent adjustments don't lose updates and no counter goes negative.
type CounterLedger struct{}

func NewCounterLedger() *CounterLedger {
	return &CounterLedger{}
}

// Adjust adds delta to field of the entity with the given id, flooring the result at zero.
// tx is the caller's transaction. A missing row is not an error; callers check existence.
func (cl *CounterLedger) Adjust(tx *gorm.DB, entity domain.CounterEntity, id int64, field domain.CounterField, delta int64) error {
	if !entity.Has(field) {
		return errs.Errorf(errs.EINTERNAL, "%s has no counter %s.", entity, field)
	}
	if delta == 0 {
		return nil
	}
	col := string(field)
	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %s + ? < 0 THEN 0 ELSE %s + ? END", col, col), delta, delta)
	err := tx.Table(string(entity)).
		Where("id = ?", id).
		UpdateColumn(col, expr).Error
	if err != nil {
		return fmt.Errorf("adjust %s.%s: %w", entity, field, err)
	}
	return nil
}
