package narration

import "github.com/google/uuid"

// Token identifies one narration session. The zero Token never matches.
type Token uuid.UUID

// IsZero reports whether t is the zero token.
func (t Token) IsZero() bool {
	return uuid.UUID(t) == uuid.Nil
}

func (t Token) String() string {
	if t.IsZero() {
		return "none"
	}
	return uuid.UUID(t).String()
}

// Guard remembers the single accepted session token.
type Guard struct {
	accepted Token
}

// Mint returns a fresh time-ordered token. It does not accept it.
func (g *Guard) Mint() Token {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Token(id)
}

// Accept makes t the only valid token.
func (g *Guard) Accept(t Token) {
	g.accepted = t
}

// Revoke invalidates every token.
func (g *Guard) Revoke() {
	g.accepted = Token{}
}

// Valid reports whether t is the accepted token.
func (g *Guard) Valid(t Token) bool {
	return !t.IsZero() && t == g.accepted
}

// Current returns the accepted token, or the zero token.
func (g *Guard) Current() Token {
	return g.accepted
}
