package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	for _, pw := range []string{"pw12345678", "correct horse battery staple", "ünïcødé-pässwörd", ""} {
		digest, err := h.Hash(pw)
		if err != nil {
			t.Fatalf("hash %q: %v", pw, err)
		}
		if !h.Verify(pw, digest) {
			t.Fatalf("verify(%q, hash(%q)) should be true", pw, pw)
		}
	}
}

func TestHasher_SaltedDigestsDiffer(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("pw12345678")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := h.Hash("pw12345678")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if a == b {
		t.Fatalf("expected different digests for the same password")
	}
	if !h.Verify("pw12345678", a) || !h.Verify("pw12345678", b) {
		t.Fatalf("both digests must verify")
	}
}

func TestHasher_WrongPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	digest, err := h.Hash("pw12345678")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if h.Verify("other-password", digest) {
		t.Fatalf("verify should fail for a different password")
	}
}

func TestHasher_MalformedDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	for _, digest := range []string{"", "not-a-bcrypt-hash", "$2a$10$short"} {
		if h.Verify("pw12345678", digest) {
			t.Fatalf("malformed digest %q must not verify", digest)
		}
	}
}

func TestNewHasher_CostFallback(t *testing.T) {
	if NewHasher(0).cost != bcrypt.DefaultCost {
		t.Fatalf("zero cost should fall back to default")
	}
	if NewHasher(99).cost != bcrypt.DefaultCost {
		t.Fatalf("out of range cost should fall back to default")
	}
}
