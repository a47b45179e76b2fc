package apierr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("paper: %w", pkgerrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{errkind.Validation("select", fmt.Errorf("no ideas")), http.StatusBadRequest, "validation"},
		{fmt.Errorf("wrap: %w", pkgerrors.ErrConflict), http.StatusConflict, "conflict"},
		{errkind.Provider("llm", fmt.Errorf("boom")), http.StatusBadGateway, "provider"},
		{fmt.Errorf("raw"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		got := From(tc.err)
		assert.Equal(t, tc.status, got.Status, tc.err.Error())
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
	}
	assert.Equal(t, "internal error", From(fmt.Errorf("secret stack")).Error())
}
