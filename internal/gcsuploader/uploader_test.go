package gcsuploader

import "testing"

func TestBuildGCSURI(t *testing.T) {
	tests := []struct {
		bucket, object, want string
	}{
		{"reports", "a/b/relatorio-2024-01.pdf", "gs://reports/a/b/relatorio-2024-01.pdf"},
		{"reports", "/leading.pdf", "gs://reports/leading.pdf"},
	}
	for _, tt := range tests {
		if got := BuildGCSURI(tt.bucket, tt.object); got != tt.want {
			t.Errorf("BuildGCSURI(%q, %q) = %q, want %q", tt.bucket, tt.object, got, tt.want)
		}
	}
}
