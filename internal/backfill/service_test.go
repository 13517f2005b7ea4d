package backfill

import "testing"

func TestBatchSizeBoundsRPCPressure(t *testing.T) {
	if batchSize != 100 {
		t.Fatalf("batchSize = %d, want 100 per the bounded-pass contract", batchSize)
	}
}
