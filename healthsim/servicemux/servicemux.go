// Package servicemux serves several HTTP servers from a single listener,
// splitting traffic by URL path prefix and optionally terminating TLS.
package servicemux

import (
	"bufio"
	"crypto/rand"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/soheilhy/cmux"

	"github.com/mark64oswald/healthsim-core/conf"
	"github.com/mark64oswald/healthsim-core/healthsim/utils"
)

type route struct {
	server *http.Server
	prefix string
}

// ServiceMux owns the shared listener and the set of servers routed
// off of it. Servers are matched in the order they were added; a route
// with an empty prefix catches everything left over.
type ServiceMux struct {
	Addr      string
	Listener  net.Listener
	TLSConfig tls.Config

	routes []route
}

func New(addr string) *ServiceMux {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Panic(err)
	}

	return &ServiceMux{
		Addr:     addr,
		Listener: keepAliveListener{ln.(*net.TCPListener)},
	}
}

// AddServer routes requests whose path starts with prefix to s. Add the
// catch-all server (empty prefix) last.
func (sm *ServiceMux) AddServer(s *http.Server, prefix string) {
	sm.routes = append(sm.routes, route{server: s, prefix: prefix})
}

func (sm *ServiceMux) Serve() {
	certPath := conf.GetEnv("HEALTHSIM_TLS_CERT")
	keyPath := conf.GetEnv("HEALTHSIM_TLS_KEY")

	switch {
	case conf.GetEnv("HTTP_ONLY") == "true":
		sm.serve()
	case certPath != "" && keyPath != "":
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			log.Panic(err)
		}

		sm.TLSConfig = tls.Config{
			Certificates:     []tls.Certificate{cert},
			Rand:             rand.Reader,
			CurvePreferences: []tls.CurveID{tls.CurveP256, tls.X25519},
			MinVersion:       tls.VersionTLS12,
		}
		sm.Listener = tls.NewListener(sm.Listener, &sm.TLSConfig)
		sm.serve()
	default:
		log.Panic("TLS certificate and key paths are required unless HTTP_ONLY is true")
	}
}

func (sm *ServiceMux) serve() {
	m := cmux.New(sm.Listener)

	for _, rt := range sm.routes {
		var ln net.Listener
		if rt.prefix == "" {
			ln = m.Match(cmux.Any())
		} else {
			ln = m.Match(pathPrefixMatcher(rt.prefix))
		}

		rt.server.TLSConfig = &sm.TLSConfig

		//nolint
		go rt.server.Serve(ln)
	}

	if err := m.Serve(); err != nil {
		log.Panic(err)
	}
}

func (sm *ServiceMux) Close() {
	if err := sm.Listener.Close(); err != nil {
		log.Error(err)
	}
}

// pathPrefixMatcher peeks at the request line to route by path. cmux
// hands each matcher a fresh reader over the buffered connection bytes.
func pathPrefixMatcher(prefix string) cmux.Matcher {
	return func(r io.Reader) bool {
		req, err := http.ReadRequest(bufio.NewReader(r))
		if err != nil {
			return false
		}
		return strings.HasPrefix(req.URL.Path, prefix)
	}
}

// IsHTTPS reports whether the server handling r terminated TLS.
func IsHTTPS(r *http.Request) bool {
	srv, ok := r.Context().Value(http.ServerContextKey).(*http.Server)
	if !ok || srv.TLSConfig == nil {
		return false
	}
	return srv.TLSConfig.Certificates != nil
}

type keepAliveListener struct {
	*net.TCPListener
}

func (ln keepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}

	if err := tc.SetKeepAlive(true); err != nil {
		return nil, err
	}

	period := utils.GetEnvInt("SERVICE_MUX_KEEP_ALIVE_INTERVAL", 60)
	if err := tc.SetKeepAlivePeriod(time.Duration(period) * time.Second); err != nil {
		return nil, err
	}

	return tc, nil
}
