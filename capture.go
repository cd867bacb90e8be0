package main

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type Header struct {
	Name  string
	Value string
}

type FormField struct {
	Key   string
	Value string
}

// Form keeps form fields in the order they appeared in the body.
type Form []FormField

// CapturedRequest is a POST as the listener received it.
type CapturedRequest struct {
	Method     string
	Path       string
	Proto      string
	RemoteAddr string

	// Headers starts with Host, then the rest sorted by name. net/http does not
	// keep wire order; repeated values stay in the order received.
	Headers []Header

	RawBody []byte
	Form    Form
}

// newCapturedRequest drains r.Body. Form parse failures leave Form empty. A body read
// error is returned alongside a capture holding whatever was read before it.
func newCapturedRequest(r *http.Request) (*CapturedRequest, error) {
	var raw []byte
	var readErr error
	if r.Body != nil {
		raw, readErr = io.ReadAll(r.Body)
	}

	c := &CapturedRequest{
		Method:     r.Method,
		Path:       r.URL.Path,
		Proto:      r.Proto,
		RemoteAddr: r.RemoteAddr,
		Headers:    orderedHeaders(r),
		RawBody:    raw,
	}

	if form, err := parseForm(r.Header.Get("Content-Type"), raw); err == nil {
		c.Form = form
	}
	return c, readErr
}

// orderedHeaders flattens r.Header. net/http does not keep wire order, so Host comes
// first and the rest are sorted by canonical name, values in received order.
func orderedHeaders(r *http.Request) []Header {
	var out []Header
	if r.Host != "" {
		out = append(out, Header{Name: "Host", Value: r.Host})
	}

	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, v := range r.Header[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

func parseForm(contentType string, body []byte) (Form, error) {
	if contentType == "" {
		return nil, nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		return parseURLEncoded(string(body))
	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return nil, http.ErrMissingBoundary
		}
		return parseMultipart(body, boundary)
	}
	return nil, nil
}

// parseURLEncoded keeps field order and splits on "&" only, so cookie strings such as
// "c=a=1; b=2" survive as a single value.
func parseURLEncoded(query string) (Form, error) {
	var form Form
	for query != "" {
		var field string
		field, query, _ = strings.Cut(query, "&")
		if field == "" {
			continue
		}
		key, value, _ := strings.Cut(field, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		form = append(form, FormField{Key: key, Value: value})
	}
	return form, nil
}

// parseMultipart collects the non-file fields of a multipart body.
func parseMultipart(body []byte, boundary string) (Form, error) {
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	var form Form
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return nil, err
		}
		name := part.FormName()
		if name == "" || part.FileName() != "" {
			part.Close()
			continue
		}
		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, err
		}
		form = append(form, FormField{Key: name, Value: string(value)})
	}
}

// FirstKey returns the key of the first field, or "" for an empty form.
func (f Form) FirstKey() string {
	if len(f) == 0 {
		return ""
	}
	return f[0].Key
}

// String renders every key once with its first value, e.g. {"a": "1", "b": "2"}.
func (f Form) String() string {
	seen := make(map[string]bool, len(f))
	var b strings.Builder
	b.WriteByte('{')
	for _, field := range f {
		if seen[field.Key] {
			continue
		}
		if len(seen) > 0 {
			b.WriteString(", ")
		}
		seen[field.Key] = true
		b.WriteString(strconv.Quote(field.Key))
		b.WriteString(": ")
		b.WriteString(strconv.Quote(field.Value))
	}
	b.WriteByte('}')
	return b.String()
}

// Reconstruct renders the request line, headers, a blank line and the first form key.
func (c *CapturedRequest) Reconstruct() string {
	var b strings.Builder
	b.WriteString(c.Method + " " + c.Path + " " + c.Proto + "\n")
	for _, h := range c.Headers {
		b.WriteString(h.Name + ": " + h.Value + "\n")
	}
	b.WriteString("\n")
	b.WriteString(c.Form.FirstKey())
	return b.String()
}
