package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"relaychat/internal/pkg/errs"
)

type signInBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func newJSONRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	return r
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    int
	}{
		{name: "valid", body: `{"email":"a@b.co","password":"secret1"}`, contentType: "application/json", wantCode: 0},
		{name: "charset suffix", body: `{"email":"a@b.co"}`, contentType: "application/json; charset=utf-8", wantCode: 0},
		{name: "wrong content type", body: `{}`, contentType: "text/plain", wantCode: errs.ErrUnsupportedMediaType},
		{name: "syntax error", body: `{"email":`, contentType: "application/json", wantCode: errs.ErrInvalidJSONFormat},
		{name: "unknown field", body: `{"nickname":"x"}`, contentType: "application/json", wantCode: errs.ErrInvalidJSONFormat},
		{name: "trailing content", body: `{"email":"a@b.co"} {"email":"c@d.co"}`, contentType: "application/json", wantCode: errs.ErrExtraContentInBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst signInBody
			err := BindJSON(httptest.NewRecorder(), newJSONRequest(tt.body, tt.contentType), &dst)
			require.Equal(t, tt.wantCode, errs.CodeOf(err))
		})
	}
}

func TestBindJSON_TooLarge(t *testing.T) {
	body := `{"email":"` + strings.Repeat("a", int(MaxJSONBodySize)) + `"}`

	var dst signInBody
	err := BindJSON(httptest.NewRecorder(), newJSONRequest(body, "application/json"), &dst)

	require.Equal(t, errs.ErrRequestEntityTooLarge, errs.CodeOf(err))
}

func TestValidate(t *testing.T) {
	req := require.New(t)

	req.NoError(Validate(&signInBody{Email: "alice@example.com", Password: "secret1"}))

	err := Validate(&signInBody{Email: "not-an-email", Password: "123"})
	req.Equal(errs.ErrInvalidParams, errs.CodeOf(err))
	req.ElementsMatch([]string{"Email", "Password"}, FieldErrors(err))
}
