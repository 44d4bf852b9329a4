package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", s.page(w, r, "Login"))
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	fail := func() {
		p := s.page(w, r, "Login")
		p.Error = "Invalid username or password!"
		s.Templates.Render(w, "login.html", p)
	}

	if username == "" || password == "" {
		fail()
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		fail()
		return
	}
	if user == nil {
		fail()
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		fail()
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user.ID, user.Username, user.FullName, user.Role)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		fail()
		return
	}

	setAuthCookie(w, token)
	setFlash(w, flashSuccess, "Welcome back, "+displayName(user)+"!")
	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func displayName(user *model.User) string {
	if user.FullName != "" {
		return user.FullName
	}
	return user.Username
}

type signupPage struct {
	PageData
	Form model.Signup
}

// SignupPage handles GET /signup.
func (s *Server) SignupPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "signup.html", &signupPage{PageData: s.page(w, r, "Sign Up")})
}

// SignupSubmit handles POST /signup.
func (s *Server) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	form := model.Signup{
		Username:        strings.TrimSpace(r.FormValue("username")),
		FullName:        strings.TrimSpace(r.FormValue("full_name")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	errs := form.Validate()
	if len(errs) == 0 {
		taken, err := store.UsernameTaken(r.Context(), s.DB, form.Username)
		if err != nil {
			slog.Error("failed to check username", "error", err)
			errs = append(errs, "Registration failed, please try again.")
		} else if taken {
			errs = append(errs, "Username already exists")
		}
	}

	if len(errs) == 0 {
		hash, err := auth.HashPassword(form.Password)
		if err == nil {
			_, err = store.CreateUser(r.Context(), s.DB, form.Username, hash, form.Email, form.FullName, model.RoleUser)
		}
		if err != nil {
			slog.Error("failed to create user", "error", err)
			errs = append(errs, "Registration failed, please try again.")
		}
	}

	if len(errs) > 0 {
		p := &signupPage{PageData: s.page(w, r, "Sign Up"), Form: form}
		p.Errors = errs
		// Never echo passwords back into the form.
		p.Form.Password, p.Form.ConfirmPassword = "", ""
		s.Templates.Render(w, "signup.html", p)
		return
	}

	slog.Info("user signed up", "user", form.Username)
	setFlash(w, flashSuccess, "Registration successful! Please login with your new account.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout handles POST /logout. The session token is revoked so a copied
// cookie stops working too.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := cookieClaims(r, s.JWTSecret, s.DB); ok {
		if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			slog.Error("failed to revoke token", "error", err)
		} else {
			slog.Info("user logged out", "user", claims.Username)
		}
	}

	clearAuthCookie(w)
	setFlash(w, flashSuccess, "You have been logged out successfully.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
