package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"

	"lambda-http/pkg/lambda"
)

const (
	MIMEJSON           = "application/json"
	MIMEJSONText       = "text/json"
	MIMEJSONLD         = "application/ld+json"
	MIMEText           = "text/plain"
	MIMEMultipart      = "multipart/form-data"
	MIMEFormURLEncoded = "application/x-www-form-urlencoded"

	maxFormMemory = 32 << 20
)

// Form is a parsed form body. File is only populated for multipart bodies.
type Form struct {
	Value url.Values
	File  map[string][]*multipart.FileHeader
}

// Get returns the first value for key.
func (f *Form) Get(key string) string {
	if f == nil {
		return ""
	}
	return f.Value.Get(key)
}

// IsJSON reports whether the content type is a JSON media type, including any +json suffix.
func (r *Request) IsJSON() bool {
	switch r.contentType {
	case MIMEJSON, MIMEJSONText, MIMEJSONLD:
		return true
	}
	return strings.HasSuffix(r.contentType, "+json")
}

// IsFormData reports whether the body is multipart or url-encoded form data.
func (r *Request) IsFormData() bool {
	return r.contentType == MIMEMultipart || r.contentType == MIMEFormURLEncoded
}

func (r *Request) IsText() bool {
	return r.contentType == MIMEText
}

// Data reads and parses the body according to its content type. It returns
// nil when there is no content type, the decoded JSON value for JSON types, a
// *Form for form types, a string for text/plain and a lambda.Blob otherwise.
func (r *Request) Data() (any, error) {
	switch {
	case r.contentType == "":
		return nil, nil
	case r.IsJSON():
		var v any
		if err := r.JSON(&v); err != nil {
			return nil, err
		}
		return v, nil
	case r.IsFormData():
		return r.FormData()
	case r.IsText():
		return r.Text()
	default:
		data, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		return lambda.Blob{Type: r.contentType, Data: data}, nil
	}
}

// Bytes reads the whole body.
func (r *Request) Bytes() ([]byte, error) {
	return r.raw.ReadBody()
}

// Text reads the body as a string.
func (r *Request) Text() (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// JSON decodes the body into v.
func (r *Request) JSON(v any) error {
	data, err := r.Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode JSON body: %w", err)
	}
	return nil
}

// FormData parses a multipart or url-encoded body.
func (r *Request) FormData() (*Form, error) {
	data, err := r.Bytes()
	if err != nil {
		return nil, err
	}

	switch r.contentType {
	case MIMEFormURLEncoded:
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse form body: %w", err)
		}
		return &Form{Value: values, File: map[string][]*multipart.FileHeader{}}, nil

	case MIMEMultipart:
		_, params, err := mime.ParseMediaType(r.raw.Header.Get("Content-Type"))
		if err != nil || params["boundary"] == "" {
			return nil, fmt.Errorf("multipart body has no boundary")
		}
		mf, err := multipart.NewReader(bytes.NewReader(data), params["boundary"]).ReadForm(maxFormMemory)
		if err != nil {
			return nil, fmt.Errorf("failed to parse multipart body: %w", err)
		}
		return &Form{Value: url.Values(mf.Value), File: mf.File}, nil

	default:
		return nil, fmt.Errorf("content type %q is not form data", r.contentType)
	}
}
