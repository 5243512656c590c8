package resttest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// Request is a fully built request, ready to hand to a Sender.
type Request struct {
	Method string
	Path   string

	// Query is nil when the scenario gave no query parameters and non-nil
	// (possibly empty) when it did.
	Query url.Values

	// Body holds the JSON-encoded request body, nil when there is none.
	Body []byte

	Header map[string]string
}

// BuildRequest turns a scenario's request fields into a Request for method
// and pathTemplate. It has no side effects.
func BuildRequest(method, pathTemplate string, s Scenario) (Request, error) {
	path, err := expandPath(pathTemplate, s.PathParameters)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Method: method,
		Path:   path,
		Query:  encodeQuery(s.QueryParameters),
	}

	if s.RequestBody != nil {
		body, err := json.Marshal(s.RequestBody)
		if err != nil {
			return Request{}, fmt.Errorf("encode request body: %w", err)
		}
		req.Body = body
	}

	if s.RequestHeaders != nil {
		req.Header = make(map[string]string, len(s.RequestHeaders))
		for k, v := range s.RequestHeaders {
			req.Header[k] = v
		}
	}

	return req, nil
}

// URL returns the path followed by the encoded query string, if any.
func (r Request) URL() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	encoded := r.Query.Encode()
	if encoded == "" {
		return r.Path
	}
	return r.Path + "?" + encoded
}

// HTTPRequest converts r into an *http.Request against baseURL. A JSON
// content type is set when there is a body and the headers do not name one.
func (r Request) HTTPRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, strings.TrimSuffix(baseURL, "/")+r.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("build http request: %w", err)
	}

	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Header {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	return req, nil
}

// expandPath substitutes {name} placeholders in template. "{{" and "}}" stand
// for literal braces.
func expandPath(template string, params map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		switch c := template[i]; c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", &PathTemplateError{Template: template, Offset: i, Reason: "unclosed placeholder"}
			}
			name := template[i+1 : i+1+end]
			if name == "" || strings.ContainsRune(name, '{') {
				return "", &PathTemplateError{Template: template, Offset: i, Reason: fmt.Sprintf("invalid placeholder %q", name)}
			}
			value, ok := params[name]
			if !ok {
				return "", &MissingPathParameterError{Name: name, Template: template}
			}
			b.WriteString(fmt.Sprint(value))
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", &PathTemplateError{Template: template, Offset: i, Reason: "single '}' encountered"}
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

// encodeQuery converts query parameters into url.Values. Sequence values
// produce one entry per element, in order.
func encodeQuery(params map[string]any) url.Values {
	if params == nil {
		return nil
	}
	q := make(url.Values, len(params))
	for k, v := range params {
		q[k] = queryValues(v)
	}
	return q
}

func queryValues(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{val}
	case []string:
		return append([]string{}, val...)
	case []byte:
		return []string{string(val)}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]string, rv.Len())
		for i := range out {
			out[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}
