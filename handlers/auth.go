package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kevinaaaquil/bookreviews/middleware"
	"github.com/kevinaaaquil/bookreviews/models"
	"github.com/kevinaaaquil/bookreviews/service"
	"github.com/kevinaaaquil/bookreviews/store"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie       = "oauth_state"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleOAuthConfig builds the OAuth client configuration for Google sign-in.
func GoogleOAuthConfig(clientID, clientSecret, callbackURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

type AuthHandler struct {
	responder
	// OAuth is nil when Google sign-in is not configured.
	OAuth       *oauth2.Config
	UserInfoURL string
	Users       service.UserStore
	Sessions    *middleware.Sessions
}

type googleProfile struct {
	Sub        string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
}

// Google starts the sign-in handshake by redirecting to the consent screen.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	if h.OAuth == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "google sign-in not configured")
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.Sessions.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback finishes the handshake, records the user and opens a session. Every
// outcome ends in a redirect to "/".
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.OAuth == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "google sign-in not configured")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1})

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		h.log.Warn("oauth state mismatch")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	user, err := h.signIn(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error("google sign-in failed", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := h.Sessions.Issue(w, user.ID); err != nil {
		h.log.Error("issue session", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.log.Info("user signed in", "userId", user.ID.Hex())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) signIn(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}
	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.Sub == "" {
		return nil, errors.New("profile without subject")
	}
	return h.Users.UpsertGoogleUser(ctx, &models.User{
		GoogleID:    p.Sub,
		DisplayName: p.Name,
		FirstName:   p.GivenName,
		LastName:    p.FamilyName,
		Email:       p.Email,
		Image:       p.Picture,
		CreatedAt:   time.Now().UTC(),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// CurrentUser returns the signed-in user.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.UserIDFromContext(r.Context())
	user, err := h.Users.UserByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
