// Package config loads vchat settings from a key=value file and flag
// overrides.
//
// Bad values never abort a load: each one is reported as a warning and the
// previous value is kept. Only Validate can fail hard.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Placeholder is replaced by the username in a border template.
const Placeholder = "{uname}"

const (
	RoleHub    = "hub"
	RoleClient = "client"

	TransportTCP       = "tcp"
	TransportWebSocket = "ws"

	DefaultFile = "vchat.conf"
)

// Keys accepted in the config file and as flag overrides.
const (
	KeyUsername  = "username"
	KeyIP        = "ip"
	KeyPort      = "port"
	KeyType      = "type"
	KeyBorder    = "border"
	KeyTransport = "transport"
	KeyLogFile   = "log_file"
)

var validate = validator.New()

// Config holds resolved startup settings.
type Config struct {
	Username  string `validate:"required"`
	IP        string `validate:"required,ip|hostname"`
	Port      int    `validate:"min=1,max=65535"`
	Role      string `validate:"required,oneof=hub client"`
	Border    string `validate:"required"`
	Transport string `validate:"oneof=tcp ws"`
	LogFile   string `validate:"required"`
}

// Defaults returns the settings used when nothing overrides them. Role is
// left empty and must come from the file or a flag.
func Defaults() Config {
	return Config{
		Username:  "anon",
		IP:        "127.0.0.1",
		Port:      25565,
		Border:    "[" + Placeholder + "]: ",
		Transport: TransportTCP,
		LogFile:   filepath.Join(os.TempDir(), "vchat.log"),
	}
}

// InvalidAddressError reports an address that is neither an IP nor a host
// name. It is a warning.
type InvalidAddressError struct {
	Value string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q, try 'localhost' if you're hosting on your own system", e.Value)
}

// ValueError reports a rejected value for key. It is a warning.
type ValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: ignoring %q: %s", e.Key, e.Value, e.Reason)
}

// LineError reports a config file line that could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d: %q: expected key=value", e.Line, e.Text)
}

func (e *LineError) Unwrap() error { return e.Err }

// LoadFile reads key=value pairs from path. A missing file yields no values
// and no error. Lines are parsed one at a time so that a malformed line only
// costs itself; blank lines and lines starting with '#' are skipped. An
// unquoted border keeps its trailing spaces.
func LoadFile(path string) (map[string]string, []error, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	values := map[string]string{}
	var warnings []error
	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "=") {
			warnings = append(warnings, &LineError{Line: i + 1, Text: line})
			continue
		}
		kv, err := godotenv.Unmarshal(line)
		if err != nil {
			warnings = append(warnings, &LineError{Line: i + 1, Text: line, Err: err})
			continue
		}
		for k, v := range kv {
			if k == KeyBorder {
				v = borderValue(raw, v)
			}
			values[k] = v
		}
	}
	return values, warnings, nil
}

// borderValue keeps an unquoted border as written, from the first non-blank
// after '=' to the end of the line. Trailing spaces separate the name from
// the message. Quoted values use the parsed form.
func borderValue(raw, parsed string) string {
	rest := strings.TrimLeft(strings.TrimPrefix(strings.TrimLeft(raw, " \t"), KeyBorder), " \t")
	if !strings.HasPrefix(rest, "=") {
		return parsed
	}
	v := strings.TrimLeft(strings.TrimSuffix(rest[1:], "\r"), " \t")
	if strings.HasPrefix(v, `"`) || strings.HasPrefix(v, "'") {
		return parsed
	}
	return v
}

// Apply overrides c with values. Rejected values leave the previous setting
// in place and are returned as warnings.
func (c *Config) Apply(values map[string]string) []error {
	var warnings []error
	warn := func(err error) { warnings = append(warnings, err) }

	for _, key := range []string{KeyUsername, KeyIP, KeyPort, KeyType, KeyBorder, KeyTransport, KeyLogFile} {
		v, ok := values[key]
		if !ok {
			continue
		}
		switch key {
		case KeyUsername:
			if v == "" {
				warn(&ValueError{Key: key, Value: v, Reason: "empty username"})
				continue
			}
			c.Username = v
		case KeyIP:
			if err := validate.Var(v, "required,ip|hostname"); err != nil {
				warn(&InvalidAddressError{Value: v})
				continue
			}
			c.IP = v
		case KeyPort:
			p, err := strconv.Atoi(v)
			if err != nil || validate.Var(p, "min=1,max=65535") != nil {
				warn(&ValueError{Key: key, Value: v, Reason: "port must be 1-65535"})
				continue
			}
			c.Port = p
		case KeyType:
			role, ok := ParseRole(v)
			if !ok {
				warn(&ValueError{Key: key, Value: v, Reason: "type must be s (hub) or c (client)"})
				continue
			}
			c.Role = role
		case KeyBorder:
			if !strings.Contains(v, Placeholder) {
				warn(&ValueError{Key: key, Value: v, Reason: "border must contain " + Placeholder})
				continue
			}
			c.Border = v
		case KeyTransport:
			t := strings.ToLower(v)
			if validate.Var(t, "oneof=tcp ws") != nil {
				warn(&ValueError{Key: key, Value: v, Reason: "transport must be tcp or ws"})
				continue
			}
			c.Transport = t
		case KeyLogFile:
			c.LogFile = v
		}
	}

	for key := range values {
		if !known(key) {
			warn(&ValueError{Key: key, Value: values[key], Reason: "unknown key"})
		}
	}
	return warnings
}

func known(key string) bool {
	switch key {
	case KeyUsername, KeyIP, KeyPort, KeyType, KeyBorder, KeyTransport, KeyLogFile:
		return true
	}
	return false
}

// ParseRole accepts s, server, hub, c and client in any case.
func ParseRole(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "s", "server", "hub":
		return RoleHub, true
	case "c", "client":
		return RoleClient, true
	}
	return "", false
}

// Validate checks that c is complete enough to start a session.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			if f.Field() == "Role" {
				return errors.New("config: type is required: use -t s for a hub or -t c for a client")
			}
			return fmt.Errorf("config: invalid %s (%s)", strings.ToLower(f.Field()), f.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ResolveBorder substitutes the username into the first placeholder of the
// border template.
func (c Config) ResolveBorder() string {
	return strings.Replace(c.Border, Placeholder, c.Username, 1)
}

// Addr is the host:port the hub binds or the client dials.
func (c Config) Addr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}
