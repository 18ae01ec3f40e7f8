package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
)

func respond(err error) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithError(c, err)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondWithErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperrors.NotFound("patient", nil), http.StatusNotFound},
		{"validation", apperrors.Validation("bad", nil), http.StatusUnprocessableEntity},
		{"transition", apperrors.InvalidTransition("scheduled", "completed"), http.StatusConflict},
		{"persistence", apperrors.Persistence("save payment", errors.New("io")), http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := respond(tt.err)
			assert.Equal(t, tt.want, w.Code)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.want, body.Error.Code)
		})
	}
}

func TestRespondWithErrorHidesInternalDetail(t *testing.T) {
	_, body := respond(apperrors.Internal(errors.New("secret dsn")))
	require.NotNil(t, body.Error)
	assert.Equal(t, "Internal server error", body.Error.Message)
}
