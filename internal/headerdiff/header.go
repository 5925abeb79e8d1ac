package headerdiff

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func NewHeaderField(name string, value string) HeaderField {
	return HeaderField{
		Name:  name,
		Value: value,
	}
}

func (f HeaderField) String() string {
	return f.Name + ": " + f.Value
}

// Context selects the registry of well-known names and the indexing policy.
type Context uint8

const (
	RequestContext Context = iota
	ResponseContext
)

func (c Context) String() string {
	if c == ResponseContext {
		return "response"
	}
	return "request"
}

func ParseContext(s string) (Context, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "request":
		return RequestContext, nil
	case "response":
		return ResponseContext, nil
	}
	return RequestContext, fmt.Errorf("unknown header context %q", s)
}

// Registry returns a copy of the default well-known names for the context.
func (c Context) Registry() []string {
	src := requestRegistry
	if c == ResponseContext {
		src = responseRegistry
	}
	return append([]string(nil), src...)
}

// Indexes 0 to 13 of both registries always fit in the literal prefix.
var requestRegistry = []string{
	"accept",
	"accept-charset",
	"accept-encoding",
	"accept-language",
	"cookie",
	"method",
	"host",
	"if-modified-since",
	"keep-alive",
	"url",
	"user-agent",
	"version",
	"proxy-connection",
	"referer",
	"accept-datetime",
	"authorization",
	"allow",
	"cache-control",
	"connection",
	"content-length",
	"content-md5",
	"content-type",
	"date",
	"expect",
	"from",
	"if-match",
	"if-none-match",
	"if-range",
	"if-unmodified-since",
	"max-forwards",
	"pragma",
	"proxy-authorization",
	"range",
	"te",
	"upgrade",
	"via",
	"warning",
}

var responseRegistry = []string{
	"age",
	"cache-control",
	"content-length",
	"content-type",
	"date",
	"etag",
	"expires",
	"last-modified",
	"server",
	"set-cookie",
	"status",
	"vary",
	"version",
	"via",
	"access-control-allow-origin",
	"accept-ranges",
	"allow",
	"connection",
	"content-disposition",
	"content-encoding",
	"content-language",
	"content-location",
	"content-md5",
	"content-range",
	"link",
	"location",
	"p3p",
	"pragma",
	"proxy-authenticate",
	"refresh",
	"retry-after",
	"strict-transport-security",
	"trailer",
	"transfer-encoding",
	"warning",
	"www-authenticate",
}

// ValidateHeaders checks the shape the encoder assumes of its input.
func ValidateHeaders(headers []HeaderField) error {
	for i, h := range headers {
		if h.Name == "" {
			return fmt.Errorf("header %d: empty name", i)
		}
		if !utf8.ValidString(h.Name) {
			return fmt.Errorf("header %d: name is not valid UTF-8", i)
		}
		if !utf8.ValidString(h.Value) {
			return fmt.Errorf("header %d (%s): value is not valid UTF-8", i, h.Name)
		}
	}
	return nil
}
