package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.3))
	assert.Equal(t, 0.0, ClampConfidence(0))
	assert.Equal(t, 0.42, ClampConfidence(0.42))
	assert.Equal(t, 1.0, ClampConfidence(1))
	assert.Equal(t, 1.0, ClampConfidence(1.4))
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", DomainOf("https://example.com/login"))
	assert.Equal(t, "example.com", DomainOf("https://example.com:8443/login"))
	assert.Equal(t, "sub.example.com", DomainOf("http://sub.example.com"))
	assert.Equal(t, "example.com", DomainOf("https://EXAMPLE.com"))
	assert.Equal(t, "", DomainOf("not a url"))
	assert.Equal(t, "", DomainOf(""))
}
