package valkey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzalendo/lingopref/cache/valkey"
)

func TestNewRejectsMalformedURI(t *testing.T) {
	_, err := valkey.New(valkey.Options{URI: "http://localhost:6379"})
	assert.Error(t, err)
}
