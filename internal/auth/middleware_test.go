package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureIdentity is a terminal handler that records what LoadIdentity stored.
func captureIdentity(got *Identity, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *found = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestLoadIdentity(t *testing.T) {
	ts := newTestSessionTokens(t)
	valid, err := ts.Issue(testIdentity)
	require.NoError(t, err)

	tests := []struct {
		name      string
		cookie    *http.Cookie
		wantFound bool
	}{
		{name: "no cookie is anonymous", cookie: nil, wantFound: false},
		{name: "valid session", cookie: &http.Cookie{Name: CookieName, Value: valid}, wantFound: true},
		{name: "forged session is anonymous", cookie: &http.Cookie{Name: CookieName, Value: "forged"}, wantFound: false},
		{name: "other cookie is ignored", cookie: &http.Cookie{Name: "token", Value: valid}, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got   Identity
				found bool
			)
			h := LoadIdentity(ts)(captureIdentity(&got, &found))

			req := httptest.NewRequest(http.MethodPost, "/api/graphql", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			// The middleware never rejects a request.
			assert.Equal(t, http.StatusNoContent, rr.Code)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, testIdentity, got)
			}
		})
	}
}

func TestSessionCookies(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok", ts30Days, true)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, int(ts30Days.Seconds()), cookies[0].MaxAge)

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr, false)
	cookies = rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
