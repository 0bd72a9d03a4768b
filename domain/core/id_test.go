package core

import (
	"errors"
	"testing"
)

// TestNewRunIDUniqueness tests that NewRunID generates unique identifiers
func TestNewRunIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[RunID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewRunID()
		if ID(id).IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	generated := NewRunID()

	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{generated.String(), generated, false},
		{"  " + generated.String() + " ", generated, false},
		{"run-123", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		result, err := ParseRunID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsConfigurationError(NewInvalidTimeZoneError("Mars/Olympus", nil)) {
		t.Error("Expected invalid zone to be a configuration error")
	}
	if !IsConfigurationError(NewInvalidArgumentError("batchSize", "must be positive")) {
		t.Error("Expected invalid argument to be a configuration error")
	}

	cause := errors.New("boom")
	handlerErr := NewHandlerError(2, cause)
	if !IsPropagatedError(handlerErr) || !errors.Is(handlerErr, cause) {
		t.Errorf("Expected handler error to wrap both sentinel and cause, got %v", handlerErr)
	}
	if IsConfigurationError(handlerErr) {
		t.Error("Handler failure must not be classified as configuration error")
	}
}
