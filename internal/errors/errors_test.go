package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"bayesreg/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrap_ClassifiesDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
		exit   int
	}{
		{"missing column", core.NewMissingColumnError("score"), CodeMissingColumn, http.StatusBadRequest, 2},
		{"empty dataset", core.ErrEmptyDataset, CodeEmptyDataset, http.StatusBadRequest, 2},
		{"dimension", core.NewDimensionMismatchError("slopes", 5, 4), CodeDimensionMismatch, http.StatusBadRequest, 2},
		{"not found", core.NewNotFoundError("run", "x"), CodeNotFound, http.StatusNotFound, 1},
		{"sampler", fmt.Errorf("chain 0: %w", core.ErrSamplerFailed), CodeSamplerError, http.StatusInternalServerError, 1},
		{"canceled", context.Canceled, CodeCanceled, http.StatusInternalServerError, 1},
		{"plain", stderrors.New("disk full"), CodeInternalError, http.StatusInternalServerError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.err, "load data")
			assert.Equal(t, tt.code, GetCode(err))
			assert.Equal(t, tt.status, HTTPStatus(err))
			assert.Equal(t, tt.exit, ExitCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWrap_KeepsAppErrorCode(t *testing.T) {
	inner := ConfigInvalid("sampler.chains must be at least 1")
	err := Wrapf(inner, "load config %s", "bayesreg.yaml")
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.Equal(t, 2, ExitCode(err))
	assert.Contains(t, err.Error(), "bayesreg.yaml")
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeDatabaseError, stderrors.New("connection refused"))
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeDatabaseError, GetCode(err))
}

func TestCode_BareErrors(t *testing.T) {
	assert.Equal(t, CodeNotFound, GetCode(core.ErrRunNotFound))
	assert.Equal(t, CodeNotFound, Code(fmt.Errorf("get run: %w", core.ErrRunNotFound)))
	assert.Equal(t, CodeMissingColumn, GetCode(core.NewMissingColumnError("score")))
	assert.Equal(t, CodeInternalError, GetCode(stderrors.New("x")))
	assert.Empty(t, GetCode(nil))
}
