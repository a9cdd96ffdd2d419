package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

func TestErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{apperr.NotFound("novel %s not found", "x"), http.StatusNotFound, "novel x not found"},
		{apperr.Conflict("dup"), http.StatusConflict, "dup"},
		{apperr.Forbidden("nope"), http.StatusForbidden, "nope"},
		{apperr.InvalidInput("bad"), http.StatusBadRequest, "bad"},
		{apperr.Unauthorized("who"), http.StatusUnauthorized, "who"},
		{errors.New("db is on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		Error(c, tt.err)

		assert.Equal(t, tt.code, w.Code)
		var body Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.code, body.Code)
		assert.Equal(t, tt.msg, body.Message)
	}
}
