package binder_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/binder"
)

type signUpRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Name     string `form:"name"`
	Remember bool   `form:"remember"`
	Redirect string `query:"redirect"`
	Ignored  string
}

func TestForm(t *testing.T) {
	t.Parallel()

	t.Run("urlencoded", func(t *testing.T) {
		t.Parallel()
		body := url.Values{
			"email":    {"a@b.com"},
			"password": {"Abcdefg1!"},
			"name":     {"Jo"},
			"remember": {"on"},
			"Ignored":  {"x"},
		}
		req := httptest.NewRequest(http.MethodPost, "/sign-up?redirect=/dashboard", strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		var got signUpRequest
		require.NoError(t, binder.Form()(req, &got))
		assert.Equal(t, "a@b.com", got.Email)
		assert.Equal(t, "Abcdefg1!", got.Password)
		assert.Equal(t, "Jo", got.Name)
		assert.True(t, got.Remember)
		assert.Empty(t, got.Redirect)
		assert.Empty(t, got.Ignored)
	})

	t.Run("multipart values", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("email", "a@b.com"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/sign-in", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		var got signUpRequest
		require.NoError(t, binder.Form()(req, &got))
		assert.Equal(t, "a@b.com", got.Email)
	})

	t.Run("not applicable", func(t *testing.T) {
		t.Parallel()
		get := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
		assert.ErrorIs(t, binder.Form()(get, &signUpRequest{}), binder.ErrBinderNotApplicable)

		jsonReq := httptest.NewRequest(http.MethodPost, "/sign-in", strings.NewReader("{}"))
		jsonReq.Header.Set("Content-Type", "application/json")
		assert.ErrorIs(t, binder.Form()(jsonReq, &signUpRequest{}), binder.ErrBinderNotApplicable)
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("remember=maybe"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		assert.ErrorIs(t, binder.Form()(req, &signUpRequest{}), binder.ErrInvalidForm)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	type callback struct {
		Code     string `query:"code"`
		SignUp   bool   `query:"signup"`
		Type     string `query:"type"`
		ErrorMsg string `query:"error_description"`
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&signup=true&type=recovery&error_description=User+cancelled", nil)

	var got callback
	require.NoError(t, binder.Query()(req, &got))
	assert.Equal(t, callback{Code: "abc", SignUp: true, Type: "recovery", ErrorMsg: "User cancelled"}, got)

	assert.ErrorIs(t, binder.Query()(req, got), binder.ErrInvalidQuery)
}
