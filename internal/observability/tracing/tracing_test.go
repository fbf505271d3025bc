package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/saweria/callback"),
		attribute.String("donator_email", "a@b.c"),
		attribute.String("saweria.signature", "abc"),
	)
	if assert.Len(t, attrs, 1) {
		assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
	}
}

func TestSafeErrorKeepsLeadingCode(t *testing.T) {
	err := SafeError(errors.New("insert ledger entry: duplicate key value"))
	assert.EqualError(t, err, "insert")
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("bad_signature")), "bad_signature")
}
