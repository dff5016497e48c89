// Package config implements the config loader: a flat key=value file
// parsed into the process-wide, immutable configuration.
//
// The load/validate shape is grounded on ingest/config's GetConfig
// (parse, then validate, fail loudly), but the parser itself is
// hand-written: the grammar is flat `key=value` lines with no
// `[section]` headers, unlike the gcfg-based ini dialect used
// elsewhere in this codebase, so reusing gcfg here would be reaching
// for a library that doesn't fit the wire format (see DESIGN.md).
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cstroie/kore/internal/mimetable"
)

// WifiAP is one configured (ssid, password) pair.
type WifiAP struct {
	SSID     string
	Password string
}

// Config is the immutable, process-wide configuration.
type Config struct {
	Host        string
	FQDN        string
	TitanToken  string
	DDNSToken   string
	Timezone    string
	MDNSEnabled bool
	WifiAPs     []WifiAP
	MIME        *mimetable.Table
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the flat key=value grammar from r:
//   - UTF-8, LF or CRLF lines.
//   - a line beginning with '#' is a comment.
//   - otherwise the line matches key=value, split at the first '=', both
//     trimmed.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{MDNSEnabled: true}
	var mime []mimetable.Entry

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		idx := strings.IndexByte(trimmed, '=')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:idx])
		value := strings.TrimSpace(trimmed[idx+1:])
		switch strings.ToLower(key) {
		case "hostname":
			cfg.FQDN = value
			if dot := strings.IndexByte(value, '.'); dot >= 0 {
				cfg.Host = value[:dot]
			} else {
				cfg.Host = value
			}
		case "titan":
			cfg.TitanToken = value
		case "ddns":
			cfg.DDNSToken = value
		case "tz":
			cfg.Timezone = value
		case "mdns":
			cfg.MDNSEnabled = isTruthy(value)
		case "wifi":
			ssid, pass, ok := splitPair(value)
			if ok {
				cfg.WifiAPs = append(cfg.WifiAPs, WifiAP{SSID: ssid, Password: pass})
			}
		case "mime":
			e, err := parseMimeEntry(value)
			if err != nil {
				return nil, fmt.Errorf("invalid mime entry %q: %w", value, err)
			}
			mime = append(mime, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	cfg.MIME = mimetable.New(mime)
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Verify checks required fields, following ingest/config's fail-loud
// Verify() idiom.
func (c *Config) Verify() error {
	if c.FQDN == "" {
		return errors.New("config: missing required key \"hostname\"")
	}
	if c.Host == "" {
		return errors.New("config: hostname must not be empty")
	}
	return nil
}

// isTruthy implements mdns rule: truthy unless the value
// starts with 'n', 'N', or '0'.
func isTruthy(v string) bool {
	if v == "" {
		return true
	}
	switch v[0] {
	case 'n', 'N', '0':
		return false
	default:
		return true
	}
}

func splitPair(v string) (a, b string, ok bool) {
	parts := strings.SplitN(v, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func parseMimeEntry(v string) (mimetable.Entry, error) {
	parts := strings.SplitN(v, ",", 3)
	if len(parts) != 3 {
		return mimetable.Entry{}, errors.New("expected ext,gopher_char,mime_type")
	}
	ext := strings.TrimSpace(parts[0])
	gch := strings.TrimSpace(parts[1])
	mime := strings.TrimSpace(parts[2])
	if ext == "" || mime == "" || len(gch) != 1 {
		return mimetable.Entry{}, errors.New("expected ext,gopher_char,mime_type")
	}
	return mimetable.Entry{Ext: ext, MIME: mime, GopherChar: gch[0]}, nil
}
