package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"popdash/domain/core"
)

func TestHTTPStatusForDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"data source", core.NewDataSourceError("x.csv", fmt.Errorf("eof")), CodeDataSource, http.StatusBadGateway},
		{"schema", core.NewMissingColumnError("year"), CodeSchema, http.StatusUnprocessableEntity},
		{"value parse", &core.ValueParseError{Raw: "12a"}, CodeValueParse, http.StatusUnprocessableEntity},
		{"unknown category", core.NewUnknownCategoryError([]string{"Z"}), CodeInvalidInput, http.StatusBadRequest},
		{"not found", NotFound("profile demo"), CodeNotFound, http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, GetCode(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestWrapKeepsDomainClassification(t *testing.T) {
	err := Wrap(core.NewMissingColumnError("region"), "failed to normalize profile demo")

	_, ok := err.(*AppError)
	assert.True(t, ok)
	assert.Equal(t, CodeSchema, GetCode(err))
	assert.True(t, core.IsSchemaError(err))
	assert.Contains(t, err.Error(), "failed to normalize profile demo")
}

func TestWrapKeepsAppErrorCode(t *testing.T) {
	err := Wrapf(InvalidInput("bad mode"), "request %d", 7)

	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestFromDomain(t *testing.T) {
	src := core.NewDataSourceError("https://example.org/age.csv", fmt.Errorf("status 503"))

	appErr := FromDomain(src)
	assert.Equal(t, CodeDataSource, appErr.Code)
	assert.Equal(t, src.Error(), appErr.Error())
	assert.True(t, core.IsDataSourceError(appErr))

	existing := NotFound("profile demo")
	assert.Same(t, existing, FromDomain(fmt.Errorf("lookup: %w", existing)))
	assert.Nil(t, FromDomain(nil))
}
