package postgres

import (
	"sort"
	"testing"

	"github.com/google/uuid"
)

func TestBookingLockKeys(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()

	keys := bookingLockKeys(doctorID, patientID)
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want one per owner", len(keys))
	}
	if !sort.StringsAreSorted(keys) {
		t.Errorf("keys %v are not in sorted order", keys)
	}

	want := map[string]bool{
		"doctor:" + doctorID.String():   true,
		"patient:" + patientID.String(): true,
	}
	for _, k := range keys {
		if !want[k] {
			t.Errorf("unexpected key %q", k)
		}
	}
}

// Two bookings that share an owner must request that owner's key, and every
// transaction must see the same global key order.
func TestBookingLockKeys_DeterministicAcrossCallers(t *testing.T) {
	patientID := uuid.New()
	doctorA := uuid.New()
	doctorB := uuid.New()

	keysA := bookingLockKeys(doctorA, patientID)
	keysB := bookingLockKeys(doctorB, patientID)

	patientKey := "patient:" + patientID.String()
	if keysA[0] != patientKey && keysA[1] != patientKey {
		t.Errorf("booking under doctor A does not lock the shared patient: %v", keysA)
	}
	if keysB[0] != patientKey && keysB[1] != patientKey {
		t.Errorf("booking under doctor B does not lock the shared patient: %v", keysB)
	}

	for _, keys := range [][]string{keysA, keysB} {
		if !sort.StringsAreSorted(keys) {
			t.Errorf("keys %v are not in the global sorted order", keys)
		}
	}
}
