package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKind(t *testing.T) {
	err := NotFoundf("license %s does not exist", "LIC-X")
	if !IsKind(err, KindNotFound) {
		t.Error("IsKind(KindNotFound) = false, want true")
	}
	if IsKind(err, KindForbidden) {
		t.Error("IsKind(KindForbidden) = true, want false")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("plain errors should never match a kind")
	}
	if IsKind(nil, KindNotFound) {
		t.Error("nil should never match a kind")
	}
}

func TestIsKind_Wrapped(t *testing.T) {
	err := fmt.Errorf("assign devices: %w", LicenseMismatch("d1", "d2"))
	if !IsKind(err, KindLicenseMismatch) {
		t.Error("wrapped error should still match its kind")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("errors.As should unwrap to *Error")
	}
	if len(e.IDs) != 2 || e.IDs[0] != "d1" {
		t.Errorf("IDs = %v, want [d1 d2]", e.IDs)
	}
}

func TestErrorString(t *testing.T) {
	got := NotFoundIDs("devices do not exist", "d1", "d2").Error()
	want := "not_found: devices do not exist: d1, d2"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	got = Validationf("name is required").Error()
	want = "validation: name is required"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
