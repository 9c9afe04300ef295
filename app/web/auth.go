package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"

	"github.com/umputun/jobbridge/app/web/enums"
)

const (
	authCookieName       = "jobbridge-auth"
	secureAuthCookieName = "__Host-jobbridge-auth" // used over https, requires Secure and Path=/
	basicAuthUser        = "jobbridge"             // user name for basic auth fallback of api clients
)

// session represents an active user session
type session struct {
	token     string
	createdAt time.Time
}

// handleLoginForm displays the login form
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, http.StatusOK, "")
}

// handleLogin processes the login form submission
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	password := r.FormValue("password")
	if password == "" {
		s.renderLogin(w, r, http.StatusUnauthorized, "Password is required")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		log.Printf("[WARN] failed login attempt from %s", r.RemoteAddr)
		s.renderLogin(w, r, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := s.createSession()
	if err != nil {
		log.Printf("[ERROR] failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	if isSecure(r) {
		http.SetCookie(w, &http.Cookie{
			Name:     secureAuthCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(s.loginTTL.Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	} else {
		http.SetCookie(w, &http.Cookie{
			Name:     authCookieName,
			Value:    token,
			Path:     s.cookiePath(),
			MaxAge:   int(s.loginTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, s.url("/"), http.StatusSeeOther)
}

// handleLogout drops the session and clears both possible auth cookies
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{authCookieName, secureAuthCookieName} {
		if c, err := r.Cookie(name); err == nil {
			s.deleteSession(c.Value)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     s.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     secureAuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	// tell HTMX to perform a full page refresh instead of swapping content
	w.Header().Set("HX-Refresh", "true")
	http.Redirect(w, r, s.url("/login"), http.StatusSeeOther)
}

// renderLogin renders the login form with optional error message
func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, errorMsg string) {
	tmpl := s.templates["login"]
	if tmpl == nil {
		log.Printf("[ERROR] login template not found in templates map")
		http.Error(w, "Login template not found", http.StatusInternalServerError)
		return
	}

	data := struct {
		Error   string
		Theme   enums.Theme
		BaseURL string
	}{
		Error:   errorMsg,
		Theme:   s.getTheme(r),
		BaseURL: s.baseURL,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("[ERROR] failed to render login template: %v", err)
	}
}

// authMiddleware checks for session cookie or falls back to basic auth
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// skip auth for login page and static resources
		if r.URL.Path == "/login" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		for _, name := range []string{secureAuthCookieName, authCookieName} {
			if c, err := r.Cookie(name); err == nil && s.validateSession(c.Value) {
				next.ServeHTTP(w, r)
				return
			}
		}

		// fallback to basic auth for API clients
		username, password, ok := r.BasicAuth()
		if ok && username == basicAuthUser {
			if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		if r.Header.Get("Accept") == "" || strings.Contains(r.Header.Get("Accept"), "text/html") {
			http.Redirect(w, r, s.url("/login"), http.StatusSeeOther)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="Jobbridge"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// createSession makes a random session token, expired sessions are dropped
func (s *Server) createSession() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := hex.EncodeToString(b)

	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for k, v := range s.sessions {
		if time.Since(v.createdAt) > s.loginTTL {
			delete(s.sessions, k)
		}
	}
	s.sessions[token] = session{token: token, createdAt: time.Now()}
	return token, nil
}

// validateSession checks the token belongs to an active session, expired session is removed
func (s *Server) validateSession(token string) bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return false
	}
	if time.Since(sess.createdAt) > s.loginTTL {
		delete(s.sessions, token)
		return false
	}
	return true
}

func (s *Server) deleteSession(token string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, token)
}

// isSecure tells if request came over https, directly or through a proxy
func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
