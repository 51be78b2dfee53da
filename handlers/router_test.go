package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/middleware"
	"github.com/kevinaaaquil/bookreviews/models"
	"github.com/kevinaaaquil/bookreviews/service"
	"github.com/kevinaaaquil/bookreviews/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/oauth2"
)

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	store    *memory.Store
	sessions *middleware.Sessions
}

func newTestAPI(t *testing.T, configure func(*Deps)) *testAPI {
	t.Helper()
	st := memory.New()
	log := logger.Nop()
	sessions := &middleware.Sessions{Secret: []byte("test-secret"), TTL: time.Hour}
	d := Deps{
		Log:      log,
		Dev:      true,
		Store:    st,
		Sessions: sessions,
		Books:    service.NewBooks(st, nil, log),
		Reviews:  service.NewReviews(st, service.NewRatingAggregator(st), log),
	}
	if configure != nil {
		configure(&d)
	}
	return &testAPI{t: t, handler: NewRouter(d), store: st, sessions: sessions}
}

// signIn creates a user and returns a cookie carrying their session.
func (a *testAPI) signIn(name string) (*models.User, *http.Cookie) {
	a.t.Helper()
	user, err := a.store.UpsertGoogleUser(context.Background(), &models.User{GoogleID: "g-" + name, DisplayName: name})
	require.NoError(a.t, err)
	rec := httptest.NewRecorder()
	require.NoError(a.t, a.sessions.Issue(rec, user.ID))
	return user, rec.Result().Cookies()[0]
}

func (a *testAPI) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) createBook(cookie *http.Cookie, body string) models.Book {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/books", body, cookie)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Book](a.t, rec)
}

func TestRootAndHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "running")

	rec = api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, decode[errorBody](t, rec).Error, "not found")
}

func TestWritesRequireSession(t *testing.T) {
	api := newTestAPI(t, nil)
	id := primitive.NewObjectID().Hex()
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/books"},
		{http.MethodPut, "/books/" + id},
		{http.MethodDelete, "/books/" + id},
		{http.MethodPost, "/books/" + id + "/reviews"},
		{http.MethodPut, "/reviews/" + id},
		{http.MethodDelete, "/reviews/" + id},
		{http.MethodGet, "/auth/user"},
	} {
		rec := api.do(tc.method, tc.path, `{}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestBookCRUD(t *testing.T) {
	api := newTestAPI(t, nil)
	_, cookie := api.signIn("alice")

	rec := api.do(http.MethodGet, "/books", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	book := api.createBook(cookie, `{"title":"Dune","author":"Frank Herbert","isbn":"978-0-306-40615-7","publishedYear":1965}`)
	assert.Equal(t, "9780306406157", book.ISBN)
	assert.Equal(t, 0.0, book.AverageRating)

	rec = api.do(http.MethodGet, "/books/"+book.ID.Hex(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dune", decode[models.Book](t, rec).Title)

	rec = api.do(http.MethodPut, "/books/"+book.ID.Hex(), `{"title":"Dune Messiah","author":"Frank Herbert"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Book](t, rec)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, 1965, updated.PublishedYear)

	rec = api.do(http.MethodDelete, "/books/"+book.ID.Hex(), "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Book and associated reviews deleted successfully"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/books/"+book.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookErrors(t *testing.T) {
	api := newTestAPI(t, nil)
	_, cookie := api.signIn("alice")

	rec := api.do(http.MethodPost, "/books", `{"title":`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json", decode[errorBody](t, rec).Error)

	rec = api.do(http.MethodPost, "/books", `{"author":"A","isbn":"123"}`, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	fields := map[string]string{}
	for _, f := range body.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "title is required", fields["title"])
	assert.Equal(t, "invalid ISBN format", fields["isbn"])

	api.createBook(cookie, `{"title":"One","author":"A","isbn":"0306406152"}`)
	rec = api.do(http.MethodPost, "/books", `{"title":"Two","author":"B","isbn":"0306406152"}`, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWrongTypedFieldsAreValidationErrors(t *testing.T) {
	api := newTestAPI(t, nil)
	_, cookie := api.signIn("alice")
	book := api.createBook(cookie, `{"title":"Typed","author":"A"}`)

	tests := []struct {
		name, path, body, field, message string
	}{
		{"fractional rating", "/books/" + book.ID.Hex() + "/reviews", `{"rating":4.5}`, "rating", "rating must be an integer between 1 and 5"},
		{"string rating", "/books/" + book.ID.Hex() + "/reviews", `{"rating":"5"}`, "rating", "rating must be an integer between 1 and 5"},
		{"string year", "/books", `{"title":"T","author":"A","publishedYear":"1990"}`, "publishedYear", "publishedYear must be an integer"},
		{"numeric title", "/books", `{"title":42,"author":"A"}`, "title", "title must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, tt.path, tt.body, cookie)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[errorBody](t, rec)
			assert.Equal(t, "validation failed", body.Error)
			require.Len(t, body.Fields, 1)
			assert.Equal(t, tt.field, body.Fields[0].Field)
			assert.Equal(t, tt.message, body.Fields[0].Message)
		})
	}

	rec := api.do(http.MethodGet, "/books/"+book.ID.Hex()+"/reviews", "", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMalformedAndUnknownIDsAre404(t *testing.T) {
	api := newTestAPI(t, nil)
	_, cookie := api.signIn("alice")
	unknown := primitive.NewObjectID().Hex()

	for _, path := range []string{"/books/not-an-id", "/books/" + unknown, "/books/not-an-id/reviews", "/books/" + unknown + "/reviews"} {
		rec := api.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := api.do(http.MethodPost, "/books/"+unknown+"/reviews", `{"rating":4}`, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodPut, "/reviews/nope", `{"rating":4}`, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodDelete, "/reviews/"+unknown, "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	alice, aliceCookie := api.signIn("alice")
	_, bobCookie := api.signIn("bob")
	book := api.createBook(aliceCookie, `{"title":"Emma","author":"Jane Austen"}`)
	reviewsPath := "/books/" + book.ID.Hex() + "/reviews"

	rec := api.do(http.MethodPost, reviewsPath, `{"rating":6}`, aliceCookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating must be between 1 and 5", decode[errorBody](t, rec).Fields[0].Message)

	rec = api.do(http.MethodPost, reviewsPath, `{"rating":4,"comment":"charming"}`, aliceCookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	review := decode[models.Review](t, rec)
	assert.Equal(t, alice.ID, review.UserID)

	rec = api.do(http.MethodPost, reviewsPath, `{"rating":2}`, bobCookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/books/"+book.ID.Hex(), "", nil)
	assert.Equal(t, 3.0, decode[models.Book](t, rec).AverageRating)

	rec = api.do(http.MethodGet, reviewsPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]models.ReviewWithUser](t, rec)
	require.Len(t, listed, 2)
	assert.Equal(t, "alice", listed[0].User.DisplayName)

	rec = api.do(http.MethodPut, "/reviews/"+review.ID.Hex(), `{"rating":1}`, bobCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodDelete, "/reviews/"+review.ID.Hex(), "", bobCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPut, "/reviews/"+review.ID.Hex(), `{"rating":5}`, aliceCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Review](t, rec)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "charming", updated.Comment)

	rec = api.do(http.MethodGet, "/books/"+book.ID.Hex(), "", nil)
	assert.Equal(t, 3.5, decode[models.Book](t, rec).AverageRating)

	rec = api.do(http.MethodDelete, "/reviews/"+review.ID.Hex(), "", aliceCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Review deleted successfully"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/books/"+book.ID.Hex(), "", nil)
	assert.Equal(t, 2.0, decode[models.Book](t, rec).AverageRating)
}

func TestCurrentUser(t *testing.T) {
	api := newTestAPI(t, nil)
	user, cookie := api.signIn("carol")

	rec := api.do(http.MethodGet, "/auth/user", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.User](t, rec)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "carol", got.DisplayName)

	rec = httptest.NewRecorder()
	require.NoError(t, api.sessions.Issue(rec, primitive.NewObjectID()))
	rec = api.do(http.MethodGet, "/auth/user", "", rec.Result().Cookies()[0])
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "session for a user that no longer exists")
}

func TestGoogleSignInDisabled(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(http.MethodGet, "/auth/google", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(http.MethodGet, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestGoogleSignIn(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`)
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer at-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"sub":"google-42","name":"Dana Reader","given_name":"Dana","family_name":"Reader","email":"dana@example.com"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer provider.Close()

	api := newTestAPI(t, func(d *Deps) {
		d.OAuth = &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/auth/google/callback",
			Endpoint:     oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"},
		}
		d.UserInfoURL = provider.URL + "/userinfo"
	})

	rec := api.do(http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	var stateCookieValue *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			stateCookieValue = c
		}
	}
	require.NotNil(t, stateCookieValue)

	// A callback whose state does not match opens no session.
	rec = api.do(http.MethodGet, "/auth/google/callback?state=forged&code=c", "", stateCookieValue)
	assert.Equal(t, http.StatusFound, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, middleware.SessionCookie, c.Name)
	}

	rec = api.do(http.MethodGet, "/auth/google/callback?state="+url.QueryEscape(state)+"&code=c", "", stateCookieValue)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	rec = api.do(http.MethodGet, "/auth/user", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode[models.User](t, rec)
	assert.Equal(t, "google-42", user.GoogleID)
	assert.Equal(t, "Dana Reader", user.DisplayName)
	assert.Equal(t, "dana@example.com", user.Email)
}

func TestCoverRoutesWithoutStorage(t *testing.T) {
	api := newTestAPI(t, nil)
	_, cookie := api.signIn("alice")
	book := api.createBook(cookie, `{"title":"Bare","author":"A"}`)

	rec := api.do(http.MethodGet, "/books/"+book.ID.Hex()+"/cover", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLookupISBN(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "isbn:0306406152" {
			fmt.Fprint(w, `{"totalItems":0}`)
			return
		}
		fmt.Fprint(w, `{"totalItems":1,"items":[{"volumeInfo":{"title":"Found","authors":["Someone"]}}]}`)
	}))
	defer upstream.Close()
	api := newTestAPI(t, func(d *Deps) {
		d.Lookup = &service.MetadataLookup{BaseURL: upstream.URL, Client: upstream.Client()}
	})
	_, cookie := api.signIn("alice")

	rec := api.do(http.MethodGet, "/books/lookup/0306406152", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	in := decode[service.BookInput](t, rec)
	assert.Equal(t, "Found", in.Title)
	assert.Equal(t, "Someone", in.Author)

	rec = api.do(http.MethodGet, "/books/lookup/9780306406157", "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
