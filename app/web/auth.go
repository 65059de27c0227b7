package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"
)

const authCookieName = "dumont-qa-auth"

// handleLoginForm renders the login page
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login", TemplateData{
		Version:     s.Version,
		CurrentYear: time.Now().Year(),
		AuthEnabled: true,
	})
}

// handleLogin processes the login form submission
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	password := r.FormValue("password")
	if err := bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)); err != nil {
		log.Printf("[WARN] failed login attempt from %s", r.RemoteAddr)
		s.renderLoginError(w, "Invalid password")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    s.authToken(),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(24 * time.Hour / time.Second),
	})

	log.Printf("[INFO] successful login from %s", r.RemoteAddr)
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout clears the auth cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) renderLoginError(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusUnauthorized)
	s.render(w, "login", TemplateData{
		Version:     s.Version,
		CurrentYear: time.Now().Year(),
		AuthEnabled: true,
		LoginError:  msg,
	})
}

// authMiddleware protects all routes except login and ping
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" || r.URL.Path == "/ping" {
			next.ServeHTTP(w, r)
			return
		}

		// check cookie-based auth first
		if cookie, err := r.Cookie(authCookieName); err == nil {
			if s.validateAuthToken(cookie.Value) {
				next.ServeHTTP(w, r)
				return
			}
		}

		// fall back to basic auth for API clients
		if _, pass, ok := r.BasicAuth(); ok {
			if err := bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(pass)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		// browsers get redirected to the login page, API clients get 401
		if strings.Contains(r.Header.Get("Accept"), "text/html") {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="dumont-qa"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// authToken derives a stateless session token from the password hash.
// changing the password invalidates all existing sessions.
func (s *Server) authToken() string {
	h := sha256.Sum256([]byte(s.PasswordHash + "dumont-qa-auth-token"))
	return hex.EncodeToString(h[:])
}

func (s *Server) validateAuthToken(token string) bool {
	expected := s.authToken()
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}
