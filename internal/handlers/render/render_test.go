package render

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, handler http.HandlerFunc) (*http.Response, string) {
	t.Helper()

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	return resp, string(body)
}

func TestRender_JSON(t *testing.T) {
	resp, body := get(t, func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, map[string]any{"key1": 1, "key2": "222"})
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"key1":1,"key2":"222"}`+"\n", body)
}

func TestRender_AuthError(t *testing.T) {
	resp, body := get(t, func(w http.ResponseWriter, _ *http.Request) {
		AuthError(w, "Unauthenticated")
	})

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error": "Unauthenticated"}`, body)
}

func TestRender_Fail(t *testing.T) {
	resp, body := get(t, func(w http.ResponseWriter, _ *http.Request) {
		Fail(w, "something terrible happened", http.StatusForbidden)
	})

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{
			"success": false,
			"message": "something terrible happened"
		}`,
		body,
	)
}

func TestRender_FieldErrors(t *testing.T) {
	resp, body := get(t, func(w http.ResponseWriter, _ *http.Request) {
		FieldErrors(w, map[string][]string{"email": {"The email has already been taken"}})
	})

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{
			"errors": {
				"email": ["The email has already been taken"]
			}
		}`,
		body,
	)
}

func TestRender_BindAndValidate(t *testing.T) {
	type request struct {
		Name     string `json:"name" validate:"required,max=255"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	post := func(t *testing.T, payload string) (*http.Response, string) {
		t.Helper()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := BindAndValidate[request](w, r)
			if err != nil {
				return
			}
			JSON(w, data)
		}))
		defer ts.Close()

		resp, err := http.Post(ts.URL+"/test", "application/json", strings.NewReader(payload))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck

		return resp, string(body)
	}

	t.Run("valid payload passes through", func(t *testing.T) {
		resp, body := post(t, `{"name": "Alice", "email": "a@b.com", "password": "secret1"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"name": "Alice", "email": "a@b.com", "password": "secret1"}`, body)
	})

	t.Run("errors keyed by json field names", func(t *testing.T) {
		resp, body := post(t, `{"name": "Alice", "email": "not-an-email", "password": "short"}`)

		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.JSONEq(t, `{
				"errors": {
					"email": ["Must be a valid email address"],
					"password": ["Value is too short (minimum 6)"]
				}
			}`,
			body,
		)
	})

	t.Run("broken json reports decode error", func(t *testing.T) {
		resp, body := post(t, `{"name": `)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Failed to parse JSON")
	})

	t.Run("wrong field type reports the field", func(t *testing.T) {
		resp, body := post(t, `{"name": 42, "email": "a@b.com", "password": "secret1"}`)

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Invalid data type for field 'name'")
	})
}
