package core

import (
	"sort"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("x").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestAnalysisIDTimeOrdered(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewAnalysisID().String()
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("Expected UUID v7 analysis IDs to sort in creation order")
	}
}

func TestParseAnalysisID(t *testing.T) {
	valid := NewAnalysisID().String()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid uuid", valid, false},
		{"padded uuid", "  " + valid + " ", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"not a uuid", "analysis-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseAnalysisID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if id.String() != valid {
				t.Errorf("Expected %s, got %s", valid, id)
			}
		})
	}
}
