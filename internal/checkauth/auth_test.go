package checkauth

import (
	"context"
	"strings"
	"testing"
)

func TestTokensEqual(t *testing.T) {
	tests := []struct {
		name      string
		presented string
		expected  string
		equal     bool
	}{
		{"matching", "s3cret", "s3cret", true},
		{"different", "s3cret", "other", false},
		{"different length", "s3cret", "s3cret-longer", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokensEqual(tt.presented, tt.expected); got != tt.equal {
				t.Errorf("TokensEqual(%q, %q) = %v, want %v", tt.presented, tt.expected, got, tt.equal)
			}
		})
	}
}

func TestHashTokenRoundtrip(t *testing.T) {
	hash, err := HashToken("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(hash, "scrypt:") {
		t.Errorf("hash %q missing the scheme prefix", hash)
	}
	if parts := strings.Split(hash, ":"); len(parts) != 3 {
		t.Errorf("hash has %d parts, want scheme:salt:key", len(parts))
	}

	if !VerifyTokenHash("s3cret", hash) {
		t.Error("the hashed token must verify")
	}
	if VerifyTokenHash("other", hash) {
		t.Error("a different token must not verify")
	}
}

func TestHashTokenSaltsEachHash(t *testing.T) {
	first, err := HashToken("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	second, err := HashToken("s3cret")
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Error("two hashes of the same token must differ")
	}
	if !VerifyTokenHash("s3cret", first) || !VerifyTokenHash("s3cret", second) {
		t.Error("both hashes must verify the token")
	}
}

func TestVerifyTokenHashMalformed(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no separators", "nonsense"},
		{"two parts", "scrypt:only-salt"},
		{"wrong scheme", "md5:c2FsdA==:a2V5"},
		{"bad salt encoding", "scrypt:!!!:a2V5"},
		{"bad key encoding", "scrypt:c2FsdA==:!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyTokenHash("s3cret", tt.stored) {
				t.Errorf("malformed hash %q must not verify", tt.stored)
			}
		})
	}
}

func TestVerifiedContext(t *testing.T) {
	ctx := context.Background()

	if GetVerifiedFromContext(ctx) {
		t.Error("a bare context must not be verified")
	}
	if !GetVerifiedFromContext(SetVerifiedContext(ctx, true)) {
		t.Error("expected the verified flag to round-trip")
	}
	if GetVerifiedFromContext(SetVerifiedContext(ctx, false)) {
		t.Error("an explicit false must stay false")
	}
}
