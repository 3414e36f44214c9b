package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/sakif/linkboard/internal/model"
)

// newTestSessionTokens uses a fixed, known secret so tests are deterministic.
func newTestSessionTokens(t *testing.T) *SessionTokens {
	t.Helper()
	ts, err := NewSessionTokens("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionTokens: %v", err)
	}
	return ts
}

var testIdentity = Identity{
	UserID: 42,
	Claims: model.UserInfo{
		Sub:        "google|123",
		Email:      "ada@example.com",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
		Locale:     "en",
	},
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewSessionTokens_ShortSecret(t *testing.T) {
	if _, err := NewSessionTokens("short", time.Hour); err == nil {
		t.Fatal("NewSessionTokens() should reject secrets shorter than 16 chars")
	}
}

func TestNewSessionTokens_NonPositiveMaxAge(t *testing.T) {
	if _, err := NewSessionTokens("this-is-16-chars", 0); err == nil {
		t.Fatal("NewSessionTokens() should reject a zero max age")
	}
}

// =========================================================================
// ISSUE / PARSE
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestSessionTokens(t)

	token, err := ts.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Issue() token doesn't look like a JWT (expected 2 dots, got %d)", got)
	}
}

func TestIssue_UniquePerCall(t *testing.T) {
	ts := newTestSessionTokens(t)

	// Same identity, same second: the xid jti still makes the tokens differ.
	token1, _ := ts.Issue(testIdentity)
	token2, _ := ts.Issue(testIdentity)

	if token1 == token2 {
		t.Error("Issue() returned identical tokens for two sessions")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	ts := newTestSessionTokens(t)

	token, err := ts.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != testIdentity {
		t.Errorf("Parse() = %+v, want %+v", got, testIdentity)
	}
}

func TestParse_Expired(t *testing.T) {
	ts := newTestSessionTokens(t)

	token, err := ts.issueAt(testIdentity, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("issueAt() error = %v", err)
	}

	if _, err := ts.Parse(token); err == nil {
		t.Fatal("Parse() should return an error for an expired session")
	}
}

func TestParse_Tampered(t *testing.T) {
	ts := newTestSessionTokens(t)
	token, _ := ts.Issue(testIdentity)

	tampered := token[:len(token)-3] + "xxx"

	if _, err := ts.Parse(tampered); err == nil {
		t.Fatal("Parse() should return an error for a tampered session")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	ts1, _ := NewSessionTokens("correct-secret-32-chars-long!!!!", time.Hour)
	ts2, _ := NewSessionTokens("wrong-secret-32-chars-long!!!!!!", time.Hour)

	token, _ := ts1.Issue(testIdentity)

	if _, err := ts2.Parse(token); err == nil {
		t.Fatal("Parse() should fail when using a different secret")
	}
}

func TestParse_NoUserID(t *testing.T) {
	ts := newTestSessionTokens(t)
	token, _ := ts.Issue(Identity{Claims: testIdentity.Claims})

	if _, err := ts.Parse(token); err == nil {
		t.Fatal("Parse() should reject a session without a user id")
	}
}

func TestParse_Garbage(t *testing.T) {
	ts := newTestSessionTokens(t)

	for _, in := range []string{"", "not.a.jwt.token"} {
		if _, err := ts.Parse(in); err == nil {
			t.Errorf("Parse(%q) should return an error", in)
		}
	}
}
