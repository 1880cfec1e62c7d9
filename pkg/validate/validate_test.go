package validate

import (
	"testing"

	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=8"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(sample{Email: "not-an-email", Name: "a-very-long-name"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email detail %q", details["email"])
	}
	if details["name"] != "must be at most 8" {
		t.Fatalf("unexpected name detail %q", details["name"])
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := Struct(sample{Email: "m@plexo.ai", Name: "Maria"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
