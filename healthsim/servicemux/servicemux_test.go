package servicemux

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathPrefixMatcher(t *testing.T) {
	m := pathPrefixMatcher("/data")

	match := strings.NewReader("GET /data/1/patient.ndjson HTTP/1.1\r\nHost: localhost\r\n\r\n")
	noMatch := strings.NewReader("GET /api/v1/metadata HTTP/1.1\r\nHost: localhost\r\n\r\n")
	garbage := strings.NewReader("not an http request")

	assert.True(t, m(match))
	assert.False(t, m(noMatch))
	assert.False(t, m(garbage))
}

func TestIsHTTPS(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/metadata", nil)
	assert.False(t, IsHTTPS(r))
}

func TestAddServer(t *testing.T) {
	sm := &ServiceMux{Addr: "localhost:0"}
	sm.AddServer(&http.Server{}, "/data")
	sm.AddServer(&http.Server{}, "")
	assert.Len(t, sm.routes, 2)
	assert.Equal(t, "/data", sm.routes[0].prefix)
}
