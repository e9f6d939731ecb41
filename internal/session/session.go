package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lifetime is how long a session cookie stays valid after issuance. The
// server holds no session state; the cookie is the only record.
const Lifetime = time.Hour

// Resolve returns the visitor's session id from the request cookie. The
// second return is false when the cookie is absent or not a well-formed
// UUID, in which case the caller should Issue a fresh one.
func Resolve(r *http.Request, cookieName string) (uuid.UUID, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Issue generates a fresh session id and writes it as a hardened cookie:
// HttpOnly so page script never sees it, SameSite=Strict against cross-site
// reuse, Secure whenever the request arrived over TLS.
func Issue(w http.ResponseWriter, r *http.Request, cookieName string) uuid.UUID {
	id := uuid.New()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id.String(),
		Path:     "/",
		MaxAge:   int(Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   isTLS(r),
		SameSite: http.SameSiteStrictMode,
	})
	return id
}

func isTLS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	// Honor the proxy header when running behind a TLS terminator.
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
