package rootset

import "testing"

func TestNewOrdersAndValidates(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()

	reg, err := New([]byte{'a', 'b'}, []string{a, b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	if reg.At(0).Label != 'a' || reg.At(1).Label != 'b' {
		t.Fatalf("order not preserved: %+v", reg.All())
	}
	if reg.IndexOf('b') != 1 {
		t.Fatalf("IndexOf(b) = %d, want 1", reg.IndexOf('b'))
	}
	if reg.IndexOf('z') != -1 {
		t.Fatalf("IndexOf(z) = %d, want -1", reg.IndexOf('z'))
	}
}

func TestNewRejectsDuplicateLabel(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	if _, err := New([]byte{'a', 'a'}, []string{a, b}); err == nil {
		t.Fatal("expected error for duplicate label")
	}
}

func TestNewRejectsReservedLabel(t *testing.T) {
	a := t.TempDir()
	if _, err := New([]byte{'.'}, []string{a}); err == nil {
		t.Fatal("expected error for reserved label '.'")
	}
}

func TestNewRejectsMissingRoot(t *testing.T) {
	if _, err := New([]byte{'a'}, []string{"/nonexistent/does/not/exist"}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for zero roots")
	}
}
