package ingest

import (
	"errors"
	"testing"
)

// Validation failures must reject before any persistence. The nil DB proves
// it: a touch of the database would panic.
func TestProcessValidatesBeforePersistence(t *testing.T) {
	p := NewPipeline(nil, t.TempDir())

	_, err := p.Process([]byte("a,b\n"), "", 1, nil)
	if !errors.Is(err, ErrMissingFilename) {
		t.Fatalf("empty name: %v", err)
	}

	_, err = p.Process([]byte("a,b\n"), "   ", 1, nil)
	if !errors.Is(err, ErrMissingFilename) {
		t.Fatalf("blank name: %v", err)
	}

	_, err = p.Process([]byte("{}"), "data.json", 1, nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("bad extension: %v", err)
	}

	p.MaxFileSize = 4
	_, err = p.Process([]byte("12345"), "data.csv", 1, nil)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("oversize: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("ERROR: duplicate key value violates unique constraint \"idx_tenant_sku\""), true},
		{errors.New("UNIQUE constraint failed: products.sku"), true},
		{errors.New("connection refused"), false},
	}
	for _, c := range cases {
		if got := isUniqueViolation(c.err); got != c.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
