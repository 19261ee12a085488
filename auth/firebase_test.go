package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/go-test/deep"
)

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, ok := s[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: uid}, nil
}

func TestFirebaseFromRequest(t *testing.T) {
	provider := &FirebaseProvider{
		AuthClient: stubVerifier{"admin-token": "admin", "user-token": "user"},
		AdminUIDs:  []string{"admin"},
	}

	for _, test := range []struct {
		Name     string
		Header   string
		Cookie   string
		WantInfo Info
		WantErr  bool
	}{
		{Name: "anonymous"},
		{Name: "bearer admin", Header: "Bearer admin-token", WantInfo: Info{ID: "admin", IsAdmin: true}},
		{Name: "bearer user", Header: "Bearer user-token", WantInfo: Info{ID: "user"}},
		{Name: "cookie", Cookie: "user-token", WantInfo: Info{ID: "user"}},
		{Name: "bad token", Header: "Bearer nope", WantErr: true},
		{Name: "unknown scheme", Header: "Basic abc", WantErr: true},
		{Name: "malformed", Header: "Bearer", WantErr: true},
	} {
		r := httptest.NewRequest(http.MethodGet, "/events/1", nil)
		if test.Header != "" {
			r.Header.Set("Authorization", test.Header)
		}
		if test.Cookie != "" {
			r.AddCookie(&http.Cookie{Name: "jwt", Value: test.Cookie})
		}

		info, err := provider.FromRequest(r)
		if gotErr := err != nil; gotErr != test.WantErr {
			t.Errorf("%s: err = %v, want error %v", test.Name, err, test.WantErr)
			continue
		}
		if diff := deep.Equal(info, test.WantInfo); diff != nil {
			t.Errorf("%s: %v", test.Name, diff)
		}
	}
}

func TestContext(t *testing.T) {
	ctx := Context(context.Background(), ID("u1"), Admin(true))
	if diff := deep.Equal(User(ctx), Info{ID: "u1", IsAdmin: true}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(User(context.Background()), Info{}); diff != nil {
		t.Error(diff)
	}
}
