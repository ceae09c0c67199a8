package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("stage row missing")
	err := Wrap(CodeDependency, cause, "load stage")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	inner := New(CodeStateConflict, "vehicle stage changed")
	wrapped := fmt.Errorf("cancel reservation: %w", inner)
	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeStateConflict {
		t.Fatalf("expected typed error got %v", typed)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "insert reservation")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected chain entries got %d", len(dump.Chain))
	}
}
