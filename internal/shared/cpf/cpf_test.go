package cpf_test

import (
	"testing"

	"plenary/internal/shared/cpf"
)

func TestNormalizeStripsFormatting(t *testing.T) {
	if got := cpf.Normalize("529.982.247-25"); got != "52998224725" {
		t.Fatalf("expected digits only, got %q", got)
	}
	if got := cpf.Normalize("abc"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestValidAcceptsWellFormedIdentifiers(t *testing.T) {
	for _, id := range []string{"52998224725", "11144477735"} {
		if !cpf.Valid(id) {
			t.Fatalf("expected %s to be valid", id)
		}
	}
}

func TestValidRejectsMalformedIdentifiers(t *testing.T) {
	cases := []string{
		"",
		"123",
		"111111111111",
		"11111111111", // repdigit
		"00000000000",
		"12345678911", // wrong check digits
		"52998224726",
	}
	for _, id := range cases {
		if cpf.Valid(id) {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}

func TestMask(t *testing.T) {
	if got := cpf.Mask("12345678901"); got != "123.***.***-01" {
		t.Fatalf("unexpected mask: %q", got)
	}
	if got := cpf.Mask("529.982.247-25"); got != "529.***.***-25" {
		t.Fatalf("unexpected mask for formatted input: %q", got)
	}
	if got := cpf.Mask("1234"); got != "***" {
		t.Fatalf("expected full mask for short input, got %q", got)
	}
	// Overlong identifiers must not leak extra trailing digits.
	if got := cpf.Mask("1234567890123"); got != "***" {
		t.Fatalf("expected full mask for overlong input, got %q", got)
	}
}
