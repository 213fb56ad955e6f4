package api

import (
	"testing"
)

func TestValidationResult_AddError(t *testing.T) {
	result := &ValidationResult{Valid: true}

	result.AddError("field1", "error message")

	if result.Valid {
		t.Error("Expected Valid to be false after adding error")
	}

	if len(result.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(result.Errors))
	}

	if result.Errors[0].Field != "field1" {
		t.Errorf("Expected field 'field1', got '%s'", result.Errors[0].Field)
	}

	if result.Errors[0].Message != "error message" {
		t.Errorf("Expected message 'error message', got '%s'", result.Errors[0].Message)
	}
}

func TestValidationResult_HasErrors(t *testing.T) {
	result := &ValidationResult{Valid: true}

	if result.HasErrors() {
		t.Error("Expected HasErrors to be false for empty result")
	}

	result.AddError("field", "message")

	if !result.HasErrors() {
		t.Error("Expected HasErrors to be true after adding error")
	}
}

func TestValidatePostID(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantID    int64
		wantValid bool
	}{
		{name: "valid id", raw: "42", wantID: 42, wantValid: true},
		{name: "surrounding spaces", raw: " 7 ", wantID: 7, wantValid: true},
		{name: "zero", raw: "0", wantValid: false},
		{name: "negative", raw: "-3", wantValid: false},
		{name: "not a number", raw: "abc", wantValid: false},
		{name: "empty", raw: "", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, result := ValidatePostID(tt.raw)
			if result.HasErrors() == tt.wantValid {
				t.Fatalf("Expected valid=%v, got errors %v", tt.wantValid, result.Errors)
			}
			if tt.wantValid && id != tt.wantID {
				t.Errorf("Expected id %d, got %d", tt.wantID, id)
			}
			if !tt.wantValid && result.Errors[0].Field != "postId" {
				t.Errorf("Expected field 'postId', got '%s'", result.Errors[0].Field)
			}
		})
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		target     interface{}
		wantFields []string
	}{
		{
			name:   "valid search params",
			target: &SearchParams{Tags: "a", Order: "random", Page: 1, PageSize: 10},
		},
		{
			name:       "unknown order",
			target:     &SearchParams{Order: "sideways"},
			wantFields: []string{"order"},
		},
		{
			name:       "negative paging",
			target:     &MergedGroupsParams{Page: -1, PageSize: -5},
			wantFields: []string{"page", "page_size"},
		},
		{
			name:       "missing suggestion query",
			target:     &SuggestParams{},
			wantFields: []string{"q"},
		},
		{
			name:       "suggestion limit too large",
			target:     &SuggestParams{Q: "x", Limit: 500},
			wantFields: []string{"limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateStruct(tt.target)
			if len(result.Errors) != len(tt.wantFields) {
				t.Fatalf("Expected %d errors, got %v", len(tt.wantFields), result.Errors)
			}
			for i, field := range tt.wantFields {
				if result.Errors[i].Field != field {
					t.Errorf("Expected error %d on field '%s', got '%s'", i, field, result.Errors[i].Field)
				}
				if result.Errors[i].Message == "" {
					t.Errorf("Expected a message for field '%s'", field)
				}
			}
			if result.Valid != (len(tt.wantFields) == 0) {
				t.Errorf("Expected Valid=%v", len(tt.wantFields) == 0)
			}
		})
	}
}
