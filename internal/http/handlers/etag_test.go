package handlers

import "testing"

func TestEtagMatches(t *testing.T) {
	etag := etagFor([]byte(`{"items":[],"count":0}`))

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "empty", header: "", want: false},
		{name: "exact", header: etag, want: true},
		{name: "weak", header: "W/" + etag, want: true},
		{name: "list", header: `"abc", ` + etag, want: true},
		{name: "star", header: "*", want: true},
		{name: "other", header: `"abc"`, want: false},
		{name: "unquoted", header: etag[1 : len(etag)-1], want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := etagMatches(tt.header, etag); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEtagForIsStableAndDistinct(t *testing.T) {
	a := etagFor([]byte(`{"count":1}`))
	if a != etagFor([]byte(`{"count":1}`)) {
		t.Fatalf("same body must give the same etag")
	}
	if a == etagFor([]byte(`{"count":2}`)) {
		t.Fatalf("different bodies must give different etags")
	}
	if len(a) != 34 {
		t.Fatalf("expected 32 hex chars in quotes, got %q", a)
	}
}
