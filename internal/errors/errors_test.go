package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogError(t *testing.T) {
	underlying := errors.New("no requires entries")

	err := NewCatalogError("validate", underlying)
	assert.Equal(t, ErrorTypeCatalog, err.Type)
	assert.Equal(t, "catalog validate failed: no requires entries", err.Error())

	err = err.WithFile("rules/java.toml")
	assert.Equal(t, "catalog validate failed for rules/java.toml: no requires entries", err.Error())

	err = err.WithRule("prefer-isempty")
	assert.Equal(t, ErrorTypeRule, err.Type)
	assert.Equal(t, `rule validate failed for rule "prefer-isempty" in rules/java.toml: no requires entries`, err.Error())
	assert.True(t, errors.Is(err, underlying))
	assert.False(t, err.Timestamp.IsZero())
}

func TestCatalogError_RuleOnly(t *testing.T) {
	err := NewCatalogError("register", errors.New("duplicate")).WithRule("r1")
	assert.Equal(t, `rule register failed for rule "r1": duplicate`, err.Error())
}

func TestUnitError(t *testing.T) {
	underlying := errors.New("bad toml")
	err := NewUnitError("load", "units.toml", underlying)

	assert.Equal(t, ErrorTypeUnit, err.Type)
	assert.Equal(t, "unit load failed for units.toml: bad toml", err.Error())

	var target *UnitError
	assert.True(t, errors.As(error(err), &target))
	assert.True(t, errors.Is(err, underlying))
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("performance.workers", "-1", underlying)

	assert.Equal(t, "config error for field performance.workers (value -1): must be positive", err.Error())
	assert.True(t, errors.Is(err, underlying))
}

func TestMultiError(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")

	assert.Nil(t, NewMultiError(nil).ErrOrNil())
	assert.Nil(t, NewMultiError([]error{nil, nil}).ErrOrNil())

	single := NewMultiError([]error{nil, e1})
	assert.Equal(t, "first", single.Error())

	multi := NewMultiError([]error{e1, nil, e2})
	assert.Len(t, multi.Errors, 2)
	assert.Equal(t, "2 errors: [first second]", multi.Error())
	assert.True(t, errors.Is(multi, e2))
	assert.Equal(t, "no errors", (&MultiError{}).Error())
}
