package players

import (
	"errors"
	"testing"

	"github.com/setpointhq/setpoint/internal/api/apiutil"
)

func TestPlayerRequestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   playerRequest
		field string
	}{
		{"nickname alone suffices", playerRequest{Nickname: "Giugi", JerseyNumber: 9}, ""},
		{"no name at all", playerRequest{JerseyNumber: 9}, "name"},
		{"jersey above 99", playerRequest{LastName: "Rossi", JerseyNumber: 100}, "jerseyNumber"},
		{"negative jersey", playerRequest{LastName: "Rossi", JerseyNumber: -1}, "jerseyNumber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("validate() = %v, want nil", err)
				}
				return
			}
			var fieldErr apiutil.FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("validate() = %v, want a field error", err)
			}
			if fieldErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", fieldErr.Field, tt.field)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
		null    bool
	}{
		{"empty maps to null", "", "", false, true},
		{"whitespace maps to null", "   ", "", false, true},
		{"national format", "(415) 555-2671", "+14155552671", false, false},
		{"already e164", "+14155552671", "+14155552671", false, false},
		{"international keeps prefix", "+39 06 6988 4857", "+390669884857", false, false},
		{"garbage rejected", "call me maybe", "", true, false},
		{"too short rejected", "12", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePhone(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("normalizePhone(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizePhone(%q): %v", tt.raw, err)
			}
			if tt.null {
				if got.Valid {
					t.Errorf("normalizePhone(%q) = %+v, want null", tt.raw, got)
				}
				return
			}
			if !got.Valid || got.String != tt.want {
				t.Errorf("normalizePhone(%q) = %+v, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
