package youtube

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func quotaError() error {
	return &googleapi.Error{
		Code: 403,
		Errors: []googleapi.ErrorItem{
			{Reason: "quotaExceeded"},
		},
	}
}

func TestNewRotatorEmptyPool(t *testing.T) {
	if _, err := NewRotator(nil); err == nil {
		t.Error("Expected error for empty credential pool")
	}
}

func TestRotatorExhaustsEachCredentialOnce(t *testing.T) {
	rotator, err := NewRotator([]string{"key-a", "key-b", "key-c"})
	if err != nil {
		t.Fatalf("NewRotator failed: %v", err)
	}

	var used []string
	err = rotator.Execute(func(credential string) error {
		used = append(used, credential)
		return quotaError()
	})

	if !errors.Is(err, ErrAllCredentialsExhausted) {
		t.Errorf("Expected ErrAllCredentialsExhausted, got %v", err)
	}
	if len(used) != 3 {
		t.Fatalf("Expected exactly 3 attempts for a pool of 3, got %d", len(used))
	}
	expected := []string{"key-a", "key-b", "key-c"}
	for i, credential := range expected {
		if used[i] != credential {
			t.Errorf("Attempt %d used %s, expected %s", i, used[i], credential)
		}
	}
}

func TestRotatorNonQuotaErrorPropagates(t *testing.T) {
	rotator, err := NewRotator([]string{"key-a", "key-b"})
	if err != nil {
		t.Fatalf("NewRotator failed: %v", err)
	}

	wantErr := fmt.Errorf("network unreachable")
	attempts := 0
	err = rotator.Execute(func(credential string) error {
		attempts++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for a non-quota error, got %d", attempts)
	}
	if rotator.Current() != "key-a" {
		t.Errorf("Non-quota error must not rotate, current is %s", rotator.Current())
	}
}

func TestRotatorStatePersistsAcrossCalls(t *testing.T) {
	rotator, err := NewRotator([]string{"key-a", "key-b"})
	if err != nil {
		t.Fatalf("NewRotator failed: %v", err)
	}

	// First call exhausts key-a and succeeds on key-b.
	err = rotator.Execute(func(credential string) error {
		if credential == "key-a" {
			return quotaError()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Second call should start from key-b, not wrap back to key-a.
	var used []string
	err = rotator.Execute(func(credential string) error {
		used = append(used, credential)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(used) != 1 || used[0] != "key-b" {
		t.Errorf("Expected second call to use key-b, used %v", used)
	}
}

func TestRotatorSucceedsFirstTry(t *testing.T) {
	rotator, err := NewRotator([]string{"key-a", "key-b"})
	if err != nil {
		t.Fatalf("NewRotator failed: %v", err)
	}

	attempts := 0
	err = rotator.Execute(func(credential string) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestIsQuotaExhausted(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "quota exceeded",
			err:      &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}},
			expected: true,
		},
		{
			name:     "daily limit exceeded",
			err:      &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "dailyLimitExceeded"}}},
			expected: true,
		},
		{
			name:     "rate limited without reason",
			err:      &googleapi.Error{Code: 429},
			expected: true,
		},
		{
			name:     "forbidden for another reason",
			err:      &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}},
			expected: false,
		},
		{
			name:     "not found",
			err:      &googleapi.Error{Code: 404},
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("connection reset"),
			expected: false,
		},
		{
			name:     "wrapped quota error",
			err:      fmt.Errorf("channel fetch: %w", quotaError()),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuotaExhausted(tt.err); got != tt.expected {
				t.Errorf("IsQuotaExhausted() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
