package auth

import "testing"

func TestHashPasswordDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if len(salt) != saltBytes*2 {
		t.Fatalf("salt length = %d, want %d", len(salt), saltBytes*2)
	}

	first := HashPassword("hunter22", salt, 1000)
	second := HashPassword("hunter22", salt, 1000)
	if first != second {
		t.Error("same password and salt produced different digests")
	}
	if len(first) != digestBytes*2 {
		t.Errorf("digest length = %d, want %d", len(first), digestBytes*2)
	}
}

func TestHashPasswordSaltMatters(t *testing.T) {
	saltA, _ := GenerateSalt()
	saltB, _ := GenerateSalt()
	if HashPassword("hunter22", saltA, 1000) == HashPassword("hunter22", saltB, 1000) {
		t.Error("different salts produced identical digests")
	}
}

func TestVerifyPassword(t *testing.T) {
	salt, _ := GenerateSalt()
	hash := HashPassword("correct horse", salt, 1000)

	if !VerifyPassword("correct horse", hash, salt, 1000) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong horse", hash, salt, 1000) {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("correct horse", hash, salt, 999) {
		t.Error("mismatched iteration count accepted")
	}
}
