// Package server implements listener-set management and the
// per-connection request/response cycle shared by all four protocols.
// A strictly single-threaded polled-accept loop is redesigned here as
// goroutine-per-connection, grounded directly on SimpleRelay's
// acceptor/acceptorUDP shape (a listener loop that spawns one handler
// goroutine per accepted connection and tracks live connections in a
// mutex-guarded map for clean shutdown), generalized from
// line-oriented log ingestion to this server's four content
// protocols.
package server

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cstroie/kore/internal/clock"
	"github.com/cstroie/kore/internal/config"
	"github.com/cstroie/kore/internal/content/titan"
	"github.com/cstroie/kore/internal/dispatch"
	"github.com/cstroie/kore/internal/lineio"
	"github.com/cstroie/kore/internal/log"
	"github.com/cstroie/kore/internal/proto/gemini"
	gopherproto "github.com/cstroie/kore/internal/proto/gopher"
	httpproto "github.com/cstroie/kore/internal/proto/http"
	"github.com/cstroie/kore/internal/proto/spartan"
	"github.com/cstroie/kore/internal/request"
	"github.com/cstroie/kore/internal/resolve"
	"github.com/cstroie/kore/internal/response"
	"github.com/cstroie/kore/internal/status"
)

const (
	// bufferCapacity is the line/body buffer size; under the
	// goroutine-per-connection redesign it is sized per-connection
	// rather than shared, since shared mutable state isn't safe across
	// concurrent handlers.
	bufferCapacity = 1028
	connTimeout    = 5 * time.Second
)

// Server holds the immutable, process-wide state every connection
// handler needs: config, content roots, and the logger. It is the
// single owned value recommends in place of global singletons.
type Server struct {
	Cfg         *config.Config
	ServerRoot  string
	FortunesDir string
	Logger      *log.Logger
	RandIndex   func(n int) int
	Clk         *clock.Clock
	StartedAt   time.Time

	mtx       sync.Mutex
	listeners map[int]listenerEntry
	nextID    int
	wg        sync.WaitGroup
}

type listenerEntry struct {
	l     net.Listener
	label string
}

// New builds a Server. randIndex selects a fortune entry given an
// upper bound; pass a seeded source for determinism tests. The
// server's configured timezone (cfg.Timezone) is loaded once here and
// used for every timestamp the server produces: access log lines,
// tinylog headers, and archive/CPIO stamps.
func New(cfg *config.Config, serverRoot, fortunesDir string, lg *log.Logger, randIndex func(n int) int) *Server {
	clk := clock.New(cfg.Timezone)
	return &Server{
		Cfg:         cfg,
		ServerRoot:  serverRoot,
		FortunesDir: fortunesDir,
		Logger:      lg,
		RandIndex:   randIndex,
		Clk:         clk,
		StartedAt:   clk.Now(),
		listeners:   make(map[int]listenerEntry),
	}
}

// Uptime reports how long the server has been running, measured on
// the server's own clock.
func (s *Server) Uptime() time.Duration {
	return s.Clk.Now().Sub(s.StartedAt)
}

// Listeners reports a label for every listener currently accepting
// connections, built from the listener's address, e.g. "gemini/[::]:1965".
func (s *Server) Listeners() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := make([]string, 0, len(s.listeners))
	for id := 1; id <= s.nextID; id++ {
		if e, ok := s.listeners[id]; ok {
			out = append(out, e.label)
		}
	}
	return out
}

// ServeGemini starts an accept loop for a Gemini (or authenticated
// Gemini) listener.
func (s *Server) ServeGemini(l net.Listener, authenticated bool) {
	label := "gemini/" + l.Addr().String()
	if authenticated {
		label = "gemini-auth/" + l.Addr().String()
	}
	s.serve(l, label, func(c net.Conn) { s.handleGemini(c, authenticated) })
}

// ServeSpartan starts an accept loop for the Spartan listener.
func (s *Server) ServeSpartan(l net.Listener) {
	s.serve(l, "spartan/"+l.Addr().String(), s.handleSpartan)
}

// ServeGopher starts an accept loop for the Gopher listener.
func (s *Server) ServeGopher(l net.Listener) {
	s.serve(l, "gopher/"+l.Addr().String(), s.handleGopher)
}

// ServeHTTP starts an accept loop for the HTTP/1.0 listener.
func (s *Server) ServeHTTP(l net.Listener) {
	s.serve(l, "http/"+l.Addr().String(), s.handleHTTP)
}

// Shutdown closes every tracked listener and waits for in-flight
// connections to finish.
func (s *Server) Shutdown() {
	s.mtx.Lock()
	for _, e := range s.listeners {
		e.l.Close()
	}
	s.mtx.Unlock()
	s.wg.Wait()
}

func (s *Server) addListener(l net.Listener, label string) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = listenerEntry{l: l, label: label}
	return id
}

func (s *Server) delListener(id int) {
	s.mtx.Lock()
	delete(s.listeners, id)
	s.mtx.Unlock()
}

func (s *Server) serve(l net.Listener, label string, handle func(net.Conn)) {
	id := s.addListener(l, label)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.delListener(id)
		var failCount int
		for {
			conn, err := l.Accept()
			if err != nil {
				if strings.Contains(err.Error(), "closed") {
					return
				}
				failCount++
				s.Logger.Warn("accept failure", log.KVErr(err))
				if failCount > 3 {
					return
				}
				continue
			}
			failCount = 0
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				conn.SetDeadline(time.Now().Add(connTimeout))
				handle(conn)
				conn.Close()
			}()
		}
	}()
}

type access struct {
	remote        string
	authenticated bool
	rawLine       string
	code          int
	bytesSent     int64
}

func (s *Server) logAccess(a access) {
	auth := "-"
	if a.authenticated {
		auth = "a"
	}
	s.Logger.Info("LOG: "+a.remote+" - "+auth+" - "+clock.AccessLogTime(s.Clk.Now())+
		" \""+a.rawLine+"\" ", log.KV("code", a.code), log.KV("bytes", a.bytesSent))
}

func (s *Server) fqdn() string { return s.Cfg.FQDN }

func (s *Server) dispatch(req request.Request, remote string) dispatch.Result {
	res, err := resolve.Resolve(req.Proto, req.Host, req.Path, s.fqdn(), s.ServerRoot, resolve.StatIsDir)
	if err != nil {
		return dispatch.Result{Status: status.INVALID, Text: "Invalid path"}
	}
	return dispatch.Dispatch(req, res, s.Cfg, s.ServerRoot, s.FortunesDir, s.RandIndex, s.Clk.Now(), s.Uptime(), s.Listeners())
}

func (s *Server) handleGemini(c net.Conn, authenticated bool) {
	remote := peerIP(c)
	r := bufio.NewReaderSize(c, bufferCapacity)
	buf := make([]byte, bufferCapacity)

	n, err := lineio.ReadLine(r, buf)
	if err != nil {
		s.logAccess(access{remote: remote, authenticated: authenticated, code: status.INVALID.Gemini()})
		return
	}
	rawLine := string(buf[:n])

	req, perr := gemini.Parse(rawLine, authenticated, s.fqdn())
	if perr != nil {
		code, _ := response.SendHeader(c, request.Gemini, status.INVALID, "Invalid request", s.fqdn())
		s.logAccess(access{remote: remote, authenticated: authenticated, rawLine: rawLine, code: code})
		return
	}

	if req.Proto == request.Titan {
		s.handleTitanUpload(c, r, req, rawLine, remote, authenticated)
		return
	}

	result := s.dispatch(req, remote)
	code, _ := response.SendHeader(c, request.Gemini, result.Status, result.Text, s.fqdn())
	var n64 int64
	if result.Status.IsOK() && result.WriteBody != nil {
		cw := &countingWriter{w: c}
		result.WriteBody(cw)
		n64 = cw.n
	}
	s.logAccess(access{remote: remote, authenticated: authenticated, rawLine: rawLine, code: code, bytesSent: n64})
}

func (s *Server) handleTitanUpload(c net.Conn, r *bufio.Reader, req request.Request, rawLine, remote string, authenticated bool) {
	params, perr := titan.ParseQuery(req.Query)
	if perr != nil {
		code, _ := response.SendHeader(c, request.Titan, status.INVALID, perr.Error(), s.fqdn())
		s.logAccess(access{remote: remote, authenticated: authenticated, rawLine: rawLine, code: code})
		return
	}
	if verr := titan.ValidateToken(params, s.Cfg.TitanToken); verr != nil {
		code, _ := response.SendHeader(c, request.Titan, status.INVALID, verr.Error(), s.fqdn())
		s.logAccess(access{remote: remote, authenticated: authenticated, rawLine: rawLine, code: code})
		return
	}

	res, rerr := resolve.Resolve(request.Titan, req.Host, req.Path, s.fqdn(), s.ServerRoot, resolve.StatIsDir)
	if rerr != nil {
		code, _ := response.SendHeader(c, request.Titan, status.INVALID, "Invalid path", s.fqdn())
		s.logAccess(access{remote: remote, authenticated: authenticated, rawLine: rawLine, code: code})
		return
	}

	scratch := s.ServerRoot + "/~titan~.tmp"
	err := titan.Receive(r, res.FSPath, s.ServerRoot, scratch, params.Size, bufferCapacity, s.Clk.Now())
	if err != nil {
		code, _ := response.SendHeader(c, request.Titan, status.INVALID, err.Error(), s.fqdn())
		s.logAccess(access{remote: remote, authenticated: authenticated, rawLine: rawLine, code: code})
		return
	}

	target := "gemini://" + req.Host + req.Path
	code, _ := response.SendHeader(c, request.Gemini, status.REDIR, target, s.fqdn())
	s.logAccess(access{remote: remote, authenticated: authenticated, rawLine: rawLine, code: code, bytesSent: params.Size})
}

func (s *Server) handleSpartan(c net.Conn) {
	remote := peerIP(c)
	r := bufio.NewReaderSize(c, bufferCapacity)
	buf := make([]byte, bufferCapacity)

	n, err := lineio.ReadLine(r, buf)
	if err != nil {
		s.logAccess(access{remote: remote, code: status.INVALID.Spartan()})
		return
	}
	rawLine := string(buf[:n])

	req, bodyLen, perr := spartan.ParseLine(rawLine, bufferCapacity-n)
	if perr != nil {
		code, _ := response.SendHeader(c, request.Spartan, status.INVALID, "Invalid request", s.fqdn())
		s.logAccess(access{remote: remote, rawLine: rawLine, code: code})
		return
	}
	if bodyLen > 0 {
		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(r, body); err != nil {
			s.logAccess(access{remote: remote, rawLine: rawLine, code: status.INVALID.Spartan()})
			return
		}
		req = spartan.AttachBody(req, string(body))
	}

	result := s.dispatch(req, remote)
	code, _ := response.SendHeader(c, request.Spartan, result.Status, result.Text, s.fqdn())
	var n64 int64
	if result.Status.IsOK() && result.WriteBody != nil {
		cw := &countingWriter{w: c}
		result.WriteBody(cw)
		n64 = cw.n
	}
	s.logAccess(access{remote: remote, rawLine: rawLine, code: code, bytesSent: n64})
}

func (s *Server) handleGopher(c net.Conn) {
	remote := peerIP(c)
	r := bufio.NewReaderSize(c, bufferCapacity)
	buf := make([]byte, bufferCapacity)

	n, err := lineio.ReadLine(r, buf)
	if err != nil {
		s.logAccess(access{remote: remote, code: status.INVALID.Gemini()})
		return
	}
	rawLine := string(buf[:n])
	req := gopherproto.ParseLine(rawLine)

	result := s.dispatch(req, remote)
	code, _ := response.SendHeader(c, request.Gopher, result.Status, result.Text, s.fqdn())
	var n64 int64
	if result.Status.IsOK() && result.WriteBody != nil {
		cw := &countingWriter{w: c}
		result.WriteBody(cw)
		n64 = cw.n
	}
	if result.Status.IsOK() {
		io.WriteString(c, "\r\n.\r\n")
	}
	s.logAccess(access{remote: remote, rawLine: rawLine, code: code, bytesSent: n64})
}

func (s *Server) handleHTTP(c net.Conn) {
	remote := peerIP(c)
	r := bufio.NewReaderSize(c, bufferCapacity)

	line, err := r.ReadString('\n')
	if err != nil {
		s.logAccess(access{remote: remote, code: status.INVALID.HTTP()})
		return
	}
	rawLine := strings.TrimRight(line, "\r\n")
	httpproto.DrainHeaders(r)

	req, perr := httpproto.ParseLine(rawLine)
	if perr != nil {
		code, _ := response.SendHeader(c, request.HTTP, status.INVALID, "Bad Request", s.fqdn())
		s.logAccess(access{remote: remote, rawLine: rawLine, code: code})
		return
	}
	req.Host = s.fqdn()

	result := s.dispatch(req, remote)
	code, _ := response.SendHeader(c, request.HTTP, result.Status, result.Text, s.fqdn())
	var n64 int64
	if result.Status.IsOK() && result.WriteBody != nil {
		cw := &countingWriter{w: c}
		result.WriteBody(cw)
		n64 = cw.n
	}
	s.logAccess(access{remote: remote, rawLine: rawLine, code: code, bytesSent: n64})
}

// ListenTLS wraps l in TLS requirements for the Gemini
// listeners: server certificate always required, client certificates
// required only on the authenticated (1969) listener.
func ListenTLS(addr, certFile, keyFile, caFile string, requireClientCert bool) (net.Listener, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	if requireClientCert {
		pool, err := loadCA(caFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tls.Listen("tcp", addr, cfg)
}

// loadCA reads a PEM-encoded CA certificate, grounded on the same
// ReadFile-then-AppendCertsFromPEM shape PacketFleet uses to build a
// client-verification pool.
func loadCA(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("server: failed to parse CA certificate")
	}
	return pool, nil
}

func peerIP(c net.Conn) string {
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		return c.RemoteAddr().String()
	}
	return host
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
