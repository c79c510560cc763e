package crud

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"poetryHub/domain"
	"poetryHub/errs"
	"poetryHub/testutil"
)

func TestCounterLedgerAdjust(t *testing.T) {
	db := testutil.DB(t)
	p := testutil.SeedPoetry(t, db, func(p *domain.Poetry) { p.LikeCount = 2 })
	ledger := NewCounterLedger()

	err := db.Transaction(func(tx *gorm.DB) error {
		return ledger.Adjust(tx, domain.EntityPoetry, p.ID, domain.LikeCount, 3)
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	// Decrements below zero are clamped.
	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.Adjust(tx, domain.EntityPoetry, p.ID, domain.LikeCount, -10)
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), testutil.ReloadPoetry(t, db, p.ID).LikeCount)

	err = db.Transaction(func(tx *gorm.DB) error {
		return ledger.Adjust(tx, domain.EntityPoetry, p.ID, domain.LikeCount, -1)
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), testutil.ReloadPoetry(t, db, p.ID).LikeCount)
}

func TestCounterLedgerOnlyTouchesField(t *testing.T) {
	db := testutil.DB(t)
	p := testutil.SeedPoetry(t, db, func(p *domain.Poetry) {
		p.LikeCount = 1
		p.CollectCount = 7
	})
	ledger := NewCounterLedger()

	require.NoError(t, ledger.Adjust(db, domain.EntityPoetry, p.ID, domain.ReadCount, 1))

	got := testutil.ReloadPoetry(t, db, p.ID)
	require.Equal(t, int64(1), got.ReadCount)
	require.Equal(t, int64(1), got.LikeCount)
	require.Equal(t, int64(7), got.CollectCount)
}

func TestCounterLedgerRejectsUnknownField(t *testing.T) {
	db := testutil.DB(t)
	p := testutil.SeedPoetry(t, db)

	err := NewCounterLedger().Adjust(db, domain.EntityPoetry, p.ID, domain.ViewCount, 1)
	require.Error(t, err)
	require.Equal(t, errs.EINTERNAL, errs.ErrorCode(err))
}

func TestCounterLedgerRollsBackWithTransaction(t *testing.T) {
	db := testutil.DB(t)
	p := testutil.SeedPoetry(t, db)
	ledger := NewCounterLedger()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.Adjust(tx, domain.EntityPoetry, p.ID, domain.LikeCount, 1); err != nil {
			return err
		}
		return errs.Errorf(errs.ECONFLICT, "abort")
	})
	require.Error(t, err)
	require.Equal(t, int64(0), testutil.ReloadPoetry(t, db, p.ID).LikeCount)
}
