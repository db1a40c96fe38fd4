package backend

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	err := fmt.Errorf("listing tasks: %w", ErrNotFound())
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, StatusOf(errors.New("dial tcp: connection refused")))
}

func TestErrorField(t *testing.T) {
	err := NewValidationError(map[string]FieldError{
		"password": {Code: CodeLengthOutRange, Message: "too short"},
	})
	fe, ok := err.Field("password")
	require.True(t, ok)
	assert.Equal(t, CodeLengthOutRange, fe.Code)
	_, ok = err.Field("email")
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "400")
}

func TestDecode(t *testing.T) {
	type task struct {
		ID   string  `json:"id"`
		Hour float64 `json:"hour"`
	}
	var out task
	require.NoError(t, Decode(Record{"id": "abc", "hour": 1.5, "extra": true}, &out))
	assert.Equal(t, task{ID: "abc", Hour: 1.5}, out)
	assert.Equal(t, "abc", Record{"id": "abc"}.ID())
	assert.Equal(t, "", Record{}.ID())
}

func TestAuthMethodsProvider(t *testing.T) {
	m := AuthMethods{Providers: []AuthProvider{{Name: "google"}}}
	_, ok := m.Provider("google")
	assert.True(t, ok)
	_, ok = m.Provider("github")
	assert.False(t, ok)
}
