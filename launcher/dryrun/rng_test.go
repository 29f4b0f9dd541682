package dryrun

import "testing"

func TestPartitionedRNG_SubsystemsIsolatedAndCached(t *testing.T) {
	p := NewPartitionedRNG(42)
	a := p.ForSubsystem(SubsystemOutputLength)
	if p.ForSubsystem(SubsystemOutputLength) != a {
		t.Fatal("ForSubsystem must cache instances")
	}

	// Draining token ids must not shift output lengths.
	q := NewPartitionedRNG(42)
	for i := 0; i < 100; i++ {
		q.ForSubsystem(SubsystemTokenIDs).Int63()
	}
	for i := 0; i < 10; i++ {
		if x, y := a.Int63(), q.ForSubsystem(SubsystemOutputLength).Int63(); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}
