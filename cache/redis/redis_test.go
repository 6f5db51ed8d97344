package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mzalendo/lingopref/cache/redis"
)

func TestNewRejectsMalformedURI(t *testing.T) {
	_, err := redis.New(redis.Options{URI: "http://localhost:6379"})
	assert.Error(t, err)

	_, err = redis.New(redis.Options{URI: ""})
	assert.Error(t, err)
}
