package verify

import "testing"

func TestIsValid(t *testing.T) {
	valid := func(ft FragmentType) Fragment { return Fragment{Type: ft, Status: StatusValid} }
	skipped := func(ft FragmentType) Fragment { return Fragment{Type: ft, Status: StatusSkipped} }
	invalid := func(ft FragmentType) Fragment { return Fragment{Type: ft, Status: StatusInvalid} }
	errored := func(ft FragmentType) Fragment { return Fragment{Type: ft, Status: StatusError} }

	tests := []struct {
		name      string
		fragments Fragments
		types     []FragmentType
		want      bool
	}{
		{
			name:      "all types valid",
			fragments: Fragments{valid(DocumentIntegrity), valid(DocumentStatus), valid(IssuerIdentity)},
			want:      true,
		},
		{
			name: "skipped fragments are ignored",
			fragments: Fragments{valid(DocumentIntegrity), skipped(DocumentStatus), valid(DocumentStatus),
				skipped(IssuerIdentity), valid(IssuerIdentity)},
			want: true,
		},
		{
			name:      "type with only skipped fragments",
			fragments: Fragments{valid(DocumentIntegrity), skipped(DocumentStatus), valid(IssuerIdentity)},
			want:      false,
		},
		{
			name:      "invalid fragment alongside valid",
			fragments: Fragments{valid(DocumentIntegrity), valid(DocumentStatus), valid(IssuerIdentity), invalid(IssuerIdentity)},
			want:      false,
		},
		{
			name:      "error fragment",
			fragments: Fragments{valid(DocumentIntegrity), errored(DocumentStatus), valid(IssuerIdentity)},
			want:      false,
		},
		{
			name:      "missing type",
			fragments: Fragments{valid(DocumentIntegrity), valid(DocumentStatus)},
			want:      false,
		},
		{
			name:      "restricted to integrity",
			fragments: Fragments{valid(DocumentIntegrity), invalid(DocumentStatus)},
			types:     []FragmentType{DocumentIntegrity},
			want:      true,
		},
		{
			name:      "no fragments",
			fragments: nil,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.fragments, tt.types...); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReasonCodeString(t *testing.T) {
	if CodeDocumentRevoked.String() != "DOCUMENT_REVOKED" {
		t.Errorf("CodeDocumentRevoked.String() = %s", CodeDocumentRevoked.String())
	}
	if ReasonCode(999).String() != "UNEXPECTED_ERROR" {
		t.Errorf("unknown codes should map to UNEXPECTED_ERROR")
	}
}
