package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txKey struct{}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// dbFromContext returns the transaction bound to ctx, or the fallback handle.
// Repositories route every query through this so a critical section under
// TxManager sees its own uncommitted writes.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// TxManager serializes booking writes per owner with transaction-scoped
// advisory locks. The no-overlap invariant holds for the doctor AND the
// patient, so the critical section must lock both: locking only the doctor
// would let two bookings for the same patient under different doctors race
// past each other's overlap check. Bookings sharing neither owner proceed in
// parallel. The locks are released on commit or rollback.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithBookingLock(ctx context.Context, doctorID, patientID uuid.UUID, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range bookingLockKeys(doctorID, patientID) {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
				return fmt.Errorf("acquiring booking lock %s: %w", key, err)
			}
		}
		return fn(withTx(ctx, tx))
	})
}

// bookingLockKeys returns both owners' lock keys in sorted order. Every
// transaction acquires its keys in the same global order, so two bookings
// sharing an owner cannot deadlock on the other one.
func bookingLockKeys(doctorID, patientID uuid.UUID) []string {
	keys := []string{"doctor:" + doctorID.String(), "patient:" + patientID.String()}
	sort.Strings(keys)
	return keys
}
