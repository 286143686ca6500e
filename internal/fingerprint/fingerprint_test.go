package fingerprint

import (
	"testing"

	"github.com/soundprint/soundprint/internal/peaks"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec(1023, 63)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	addr, ok := codec.Encode(512, 10, 30)
	if !ok {
		t.Fatal("Encode reported not-ok for an in-range tuple")
	}
	anchor, target, delta := codec.Decode(addr)
	if anchor != 512 || target != 10 || delta != 30 {
		t.Fatalf("round trip mismatch: got (%d, %d, %d)", anchor, target, delta)
	}
}

func TestCodecRejectsOversizedBudget(t *testing.T) {
	_, err := NewCodec(1<<20, 1<<20)
	if err == nil {
		t.Fatal("expected an error when the combined field width exceeds 32 bits")
	}
}

func TestCodecRejectsOutOfRange(t *testing.T) {
	codec, err := NewCodec(15, 15)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, ok := codec.Encode(16, 0, 0); ok {
		t.Fatal("expected Encode to reject a bin index above the configured maximum")
	}
}

func TestBuildBoundsByFanOut(t *testing.T) {
	codec, err := NewCodec(1023, 63)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	var pks []peaks.Peak
	for t := 0; t < 10; t++ {
		pks = append(pks, peaks.Peak{Frame: t, Bin: 100 + t})
	}

	cfg := DefaultConfig()
	fps := Build(pks, codec, cfg)

	if len(fps) > len(pks)*cfg.FanOut {
		t.Fatalf("fingerprint count %d exceeds peaks*fanout bound %d", len(fps), len(pks)*cfg.FanOut)
	}
	if len(fps) == 0 {
		t.Fatal("expected at least one fingerprint from 10 nearby peaks")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	codec, err := NewCodec(1023, 63)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	pks := []peaks.Peak{
		{Frame: 5, Bin: 20},
		{Frame: 1, Bin: 3},
		{Frame: 10, Bin: 40},
		{Frame: 1, Bin: 3},
	}
	cfg := DefaultConfig()

	first := Build(pks, codec, cfg)
	second := Build(pks, codec, cfg)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic fingerprint count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic fingerprint at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBuildRespectsTargetZone(t *testing.T) {
	codec, err := NewCodec(1023, 63)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	cfg := Config{DtMin: 1, DtMax: 5, DfMax: 10, FanOut: 5}
	pks := []peaks.Peak{
		{Frame: 0, Bin: 0},
		{Frame: 100, Bin: 0}, // far outside the target zone
	}
	fps := Build(pks, codec, cfg)
	if len(fps) != 0 {
		t.Fatalf("expected no fingerprints across a gap outside dt_max, got %d", len(fps))
	}
}
