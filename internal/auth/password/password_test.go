package password

import "testing"

var cheap = Params{Time: 1, Memory: 1024, Threads: 1}

func TestHashAndVerify(t *testing.T) {
	encoded, err := HashWith("correct horse battery", cheap)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !Verify("correct horse battery", encoded) {
		t.Fatalf("expected password to verify")
	}
	if Verify("wrong horse battery", encoded) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	if _, err := HashWith("short", cheap); err != ErrTooShort {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestHashUsesRandomSalt(t *testing.T) {
	a, _ := HashWith("correct horse battery", cheap)
	b, _ := HashWith("correct horse battery", cheap)
	if a == b {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$***$aGFzaA",
	}
	for _, encoded := range cases {
		if Verify("correct horse battery", encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	encoded, err := HashWith("correct horse battery", cheap)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !NeedsRehash(encoded, DefaultParams) {
		t.Fatalf("cheap hash should need rehash")
	}
	if NeedsRehash(encoded, cheap) {
		t.Fatalf("hash at target params should not need rehash")
	}
	if !NeedsRehash("garbage", cheap) {
		t.Fatalf("malformed hash should need rehash")
	}
}
