package errors

import (
	stderrors "errors"
	"testing"
)

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := stderrors.New("boom")

	var err error = NewServiceError("campaign", "publish", NewCacheError("set", "campaign-id:quiz", cause))

	var cacheErr *CacheError
	if !stderrors.As(err, &cacheErr) {
		t.Fatalf("expected CacheError in chain")
	}
	if cacheErr.Key != "campaign-id:quiz" {
		t.Fatalf("unexpected key: %s", cacheErr.Key)
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	if got := NewValidationError("missing", "").Error(); got != "missing" {
		t.Fatalf("unexpected message: %s", got)
	}
	if got := NewValidationError("missing", "groupId").Error(); got != "validation error field=groupId: missing" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestGenerationErrorMessage(t *testing.T) {
	err := NewGenerationError("openai", "create_quiz", nil)
	if err.Error() != "generation error backend=openai tool=create_quiz" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
