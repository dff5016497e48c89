// Command kored runs the multi-protocol content server: Gemini (with
// Titan upload), Spartan, Gopher, and HTTP/1.0 listeners sharing one
// request-dispatch core. Its flag set, startup sequence, capability
// warning, and signal-driven graceful shutdown are adapted from
// SimpleRelay's main.go.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/cstroie/kore/internal/caps"
	"github.com/cstroie/kore/internal/config"
	"github.com/cstroie/kore/internal/log"
	"github.com/cstroie/kore/internal/server"
	"github.com/cstroie/kore/internal/sysutil"
)

const appName = "kored"

var (
	confLoc    = flag.String("config-file", "/kore.cfg", "Location of the configuration file")
	serverRoot = flag.String("root", "/", "Root of the served content tree")
	verbose    = flag.Bool("v", false, "Log at DEBUG level")
	ver        = flag.Bool("version", false, "Print the version information and exit")

	gemAddr    = flag.String("gemini-addr", ":1965", "Unauthenticated Gemini listen address")
	gemAuthAddr = flag.String("gemini-auth-addr", ":1969", "Client-certificate-authenticated Gemini listen address")
	spartanAddr = flag.String("spartan-addr", ":300", "Spartan listen address")
	gopherAddr  = flag.String("gopher-addr", ":70", "Gopher listen address")
	httpAddr    = flag.String("http-addr", ":80", "HTTP/1.0 listen address")

	caCert  = flag.String("ca-cert", "/ssl/ca-cert.pem", "CA certificate for the authenticated Gemini listener")
	srvCert = flag.String("srv-cert", "/ssl/srv-cert.pem", "Server certificate for the Gemini listeners")
	srvKey  = flag.String("srv-key", "/ssl/srv-key.pem", "Server key for the Gemini listeners")
)

func main() {
	debug.SetTraceback("all")
	flag.Parse()
	if *ver {
		fmt.Println(appName, "development build")
		os.Exit(0)
	}

	lg := log.New(os.Stderr)
	lg.SetAppname(appName)
	if *verbose {
		lg.SetLevel(log.DEBUG)
	}

	cfg, err := config.Load(*confLoc)
	if err != nil {
		lg.FatalCode(1, "failed to load configuration", log.KV("path", *confLoc), log.KVErr(err))
		return
	}

	if !caps.HasNetBindService() {
		lg.Warn("missing capability", log.KV("capability", "NET_BIND_SERVICE"),
			log.KV("warning", "may not be able to bind to privileged service ports"))
	}

	fortunesDir := filepath.Join(*serverRoot, "fortunes")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	srv := server.New(cfg, *serverRoot, fortunesDir, lg, func(n int) int {
		if n <= 0 {
			return 0
		}
		return rng.Intn(n)
	})

	startListeners(srv, lg)

	lg.Info("kored running", log.KV("fqdn", cfg.FQDN))
	sig := sysutil.WaitForQuit()
	lg.Info("shutting down", log.KV("signal", sig.String()))
	srv.Shutdown()
	lg.Info("kored exiting")
}

func startListeners(srv *server.Server, lg *log.Logger) {
	if l, err := net.Listen("tcp", *gopherAddr); err != nil {
		lg.Warn("gopher listener disabled", log.KVErr(err))
	} else {
		go srv.ServeGopher(l)
	}

	if l, err := net.Listen("tcp", *spartanAddr); err != nil {
		lg.Warn("spartan listener disabled", log.KVErr(err))
	} else {
		go srv.ServeSpartan(l)
	}

	if l, err := net.Listen("tcp", *httpAddr); err != nil {
		lg.Warn("http listener disabled", log.KVErr(err))
	} else {
		go srv.ServeHTTP(l)
	}

	if !fileExists(*srvCert) || !fileExists(*srvKey) {
		lg.Warn("gemini listeners disabled: missing certificate or key",
			log.KV("cert", *srvCert), log.KV("key", *srvKey))
		return
	}

	if l, err := server.ListenTLS(*gemAddr, *srvCert, *srvKey, "", false); err != nil {
		lg.Warn("gemini listener disabled", log.KVErr(err))
	} else {
		go srv.ServeGemini(l, false)
	}

	if !fileExists(*caCert) {
		lg.Warn("authenticated gemini listener disabled: missing CA certificate", log.KV("ca", *caCert))
		return
	}
	if l, err := server.ListenTLS(*gemAuthAddr, *srvCert, *srvKey, *caCert, true); err != nil {
		lg.Warn("authenticated gemini listener disabled", log.KVErr(err))
	} else {
		go srv.ServeGemini(l, true)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
