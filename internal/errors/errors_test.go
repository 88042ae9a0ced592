package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/victornm/examiner/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"plain error should become internal": {
			err:      stderrors.New("boom"),
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
		"wrapped coded error should keep its code": {
			err:      fmt.Errorf("submit: %w", errors.NotFound("exam not found: %s", "e1")),
			wantCode: errors.CodeNotFound,
			wantHTTP: http.StatusNotFound,
		},
		"double submission should map to conflict": {
			err:      errors.New(errors.CodeAlreadyExists),
			wantCode: errors.CodeAlreadyExists,
			wantHTTP: http.StatusConflict,
		},
		"closed attempt should map to conflict": {
			err:      errors.New(errors.CodeFailedPrecondition),
			wantCode: errors.CodeFailedPrecondition,
			wantHTTP: http.StatusConflict,
		},
		"malformed submission should map to bad request": {
			err:      errors.InvalidArgument("examId is required"),
			wantCode: errors.CodeInvalidArgument,
			wantHTTP: http.StatusBadRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := errors.Convert(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
			assert.Equal(t, codes.Code(tt.wantCode), e.GRPCStatus().Code())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("unique violation")
	err := errors.New(errors.CodeAlreadyExists, errors.WithCause(cause), errors.WithMessagef("attempt %s already submitted", "a1"))

	require.ErrorIs(t, err, cause)
	require.True(t, errors.Is(err, errors.CodeAlreadyExists))
	require.False(t, errors.Is(err, errors.CodeNotFound))
	require.Contains(t, err.Error(), "attempt a1 already submitted")
}
