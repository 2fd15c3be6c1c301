package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveToken_CaseInsensitive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"upper", "SOL", SolMint},
		{"lower", "sol", SolMint},
		{"mixed", "Usdc", USDCMint},
		{"bonk", "bonk", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveToken(tt.input))
		})
	}
}

func TestResolveToken_PassthroughUnknown(t *testing.T) {
	// Unknown strings come back unchanged, including strings that are not
	// valid addresses at all. Validation happens downstream.
	assert.Equal(t, USDCMint, ResolveToken(USDCMint))
	assert.Equal(t, "not-a-real-token", ResolveToken("not-a-real-token"))
	assert.Equal(t, "", ResolveToken(""))
}

func TestResolveToken_Idempotent(t *testing.T) {
	inputs := append(KnownTokens(), "arbitrary-string", SolMint)
	for _, in := range inputs {
		once := ResolveToken(in)
		assert.Equal(t, once, ResolveToken(once), "resolve(resolve(%q)) != resolve(%q)", in, in)
	}
}

func TestResolveValidator_CaseInsensitive(t *testing.T) {
	want := "9QU2QSxhb24FUX3Tu2FpczXjpK3VYrvRudywSZaM29mF"
	assert.Equal(t, want, ResolveValidator("everstake"))
	assert.Equal(t, want, ResolveValidator("EVERSTAKE"))
	assert.Equal(t, want, ResolveValidator("Everstake"))
}

func TestResolveValidator_Idempotent(t *testing.T) {
	inputs := append(KnownValidators(), "some-vote-account-address")
	for _, in := range inputs {
		once := ResolveValidator(in)
		assert.Equal(t, once, ResolveValidator(once))
	}
}
