package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		expose    bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, expose: true},
		{code: CodeForbidden, status: http.StatusForbidden, expose: true},
		{code: CodeNotFound, status: http.StatusNotFound, expose: true},
		{code: CodeConflict, status: http.StatusConflict, expose: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, expose: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.ExposeMessage != tt.expose {
			t.Fatalf("code %s expected expose %v got %v", tt.code, tt.expose, meta.ExposeMessage)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	if meta := MetadataFor("SOMETHING_UNKNOWN"); meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := fmt.Errorf("checkout: %w", Wrap(CodeDependency, cause, "insert order"))

	if CodeOf(err) != CodeDependency {
		t.Fatalf("expected dependency code, got %s", CodeOf(err))
	}
	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if !IsCode(err, CodeDependency) || IsCode(err, CodeValidation) {
		t.Fatalf("IsCode mismatch")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
}

func TestNewfAndDetails(t *testing.T) {
	err := Newf(CodeValidation, "insufficient stock for %s", "Widget").WithDetails(map[string]any{"available": 1})
	if err.Message() != "insufficient stock for Widget" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Details() == nil {
		t.Fatalf("expected details")
	}
}

func TestDumpCapturesPostgresErrors(t *testing.T) {
	pgx := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key", TableName: "orders"}
	d := Dump(Wrap(CodeInternal, pgx, "insert order"))
	if d.PGCode != "23505" || d.PGConstraint != "orders_order_number_key" || d.Code != CodeInternal {
		t.Fatalf("unexpected dump %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(d.Chain))
	}

	pqErr := &pq.Error{Code: "40P01", Table: "products"}
	d = Dump(fmt.Errorf("decrement: %w", pqErr))
	if d.PGCode != "40P01" || d.PGTable != "products" {
		t.Fatalf("unexpected pq dump %+v", d)
	}
	if _, ok := d.Fields()["pg_code"]; !ok {
		t.Fatalf("expected pg fields in log fields")
	}
}
