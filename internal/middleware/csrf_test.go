package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tracknest/tracknest/internal/apperror"
)

const sessionCookie = "session"

var csrfSecret = []byte("test-secret-key-32-bytes-long!!!")

func runCSRF(t *testing.T, mutate func(req *http.Request)) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/projects", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	handler := CSRF(csrfSecret, sessionCookie)(func(c echo.Context) error { return nil })
	return handler(c)
}

// issuePair issues a token through a throwaway context and returns the
// plaintext and the cookie holding its HMAC.
func issuePair(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/csrf-token", nil), rec)

	token, err := IssueCSRFToken(c, csrfSecret)
	if err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == CSRFCookieName {
			return token, cookie
		}
	}
	t.Fatal("CSRF cookie not set")
	return "", nil
}

func TestCSRF_ValidPair(t *testing.T) {
	token, cookie := issuePair(t)

	err := runCSRF(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "some-session"})
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookie.Value})
		req.Header.Set(CSRFHeaderName, token)
	})
	if err != nil {
		t.Errorf("valid pair rejected: %v", err)
	}
}

func TestCSRF_MissingHeader(t *testing.T) {
	_, cookie := issuePair(t)

	err := runCSRF(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "some-session"})
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookie.Value})
	})
	if !apperror.IsKind(err, apperror.KindCSRFMismatch) {
		t.Errorf("got %v, want csrf_mismatch", err)
	}
}

func TestCSRF_WrongToken(t *testing.T) {
	_, cookie := issuePair(t)

	err := runCSRF(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "some-session"})
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: cookie.Value})
		req.Header.Set(CSRFHeaderName, "attacker-supplied-token")
	})
	if !apperror.IsKind(err, apperror.KindCSRFMismatch) {
		t.Errorf("got %v, want csrf_mismatch", err)
	}
}

// A forged cookie without the server secret cannot produce a matching
// pair, even when cookie and header are consistent with each other.
func TestCSRF_ForgedCookie(t *testing.T) {
	err := runCSRF(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "some-session"})
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "attacker-token"})
		req.Header.Set(CSRFHeaderName, "attacker-token")
	})
	if !apperror.IsKind(err, apperror.KindCSRFMismatch) {
		t.Errorf("got %v, want csrf_mismatch", err)
	}
}

func TestCSRF_BearerBypass(t *testing.T) {
	err := runCSRF(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "some-session"})
		req.Header.Set("Authorization", "Bearer any-token")
	})
	if err != nil {
		t.Errorf("bearer request should skip CSRF: %v", err)
	}
}

func TestCSRF_NoSessionCookie(t *testing.T) {
	// Login and register carry no session cookie; they must pass without
	// a CSRF pair.
	if err := runCSRF(t, nil); err != nil {
		t.Errorf("cookieless request should skip CSRF: %v", err)
	}
}

func TestCSRF_SafeMethods(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "/projects", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "some-session"})
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(req, rec)

		handler := CSRF(csrfSecret, sessionCookie)(func(c echo.Context) error { return nil })
		if err := handler(c); err != nil {
			t.Errorf("%s should skip CSRF: %v", method, err)
		}
	}
}

func TestIssueCSRFToken_CookieIsNotPlaintext(t *testing.T) {
	token, cookie := issuePair(t)

	if cookie.Value == token {
		t.Error("cookie stores the plaintext token instead of its HMAC")
	}
	if !cookie.HttpOnly {
		t.Error("CSRF cookie must be httpOnly")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Error("CSRF cookie must be SameSite=Strict")
	}
}
