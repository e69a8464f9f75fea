package lambda

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// FromAPIGateway converts an API Gateway proxy event into a raw request.
// The host comes from the Host header or the request context domain name.
func FromAPIGateway(ctx context.Context, event events.APIGatewayProxyRequest) (*Request, error) {
	header := make(http.Header)
	for key, value := range event.Headers {
		header.Set(key, value)
	}
	for key, values := range event.MultiValueHeaders {
		header.Del(key)
		for _, value := range values {
			header.Add(key, value)
		}
	}

	host := header.Get("Host")
	if host == "" {
		host = event.RequestContext.DomainName
	}
	if host == "" {
		host = "localhost"
	}

	scheme := "https"
	if proto := header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	}

	query := url.Values{}
	for key, value := range event.QueryStringParameters {
		query.Set(key, value)
	}
	for key, values := range event.MultiValueQueryStringParameters {
		query[key] = append([]string(nil), values...)
	}

	u := url.URL{Scheme: scheme, Host: host, Path: event.Path, RawQuery: query.Encode()}
	if u.Path == "" {
		u.Path = "/"
	}

	req, err := NewRequest(ctx, event.HTTPMethod, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header = header

	if event.Body != "" {
		body := []byte(event.Body)
		if event.IsBase64Encoded {
			body, err = base64.StdEncoding.DecodeString(event.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to decode request body: %w", err)
			}
		}
		req.body = bytes.NewReader(body)
	}

	return req, nil
}

// ToAPIGateway converts a response into an API Gateway proxy response.
// Non-textual bodies are base64 encoded. Status 0 is reported as 500.
func ToAPIGateway(resp *Response) events.APIGatewayProxyResponse {
	out := events.APIGatewayProxyResponse{
		StatusCode:        resp.StatusCode,
		Headers:           make(map[string]string, len(resp.Headers)),
		MultiValueHeaders: make(map[string][]string, len(resp.Headers)),
	}
	if out.StatusCode == 0 {
		out.StatusCode = http.StatusInternalServerError
	}

	for key, values := range resp.Headers {
		if len(values) == 0 {
			continue
		}
		out.Headers[key] = values[0]
		out.MultiValueHeaders[key] = append([]string(nil), values...)
	}

	if len(resp.Body) == 0 {
		return out
	}
	if isTextual(resp.Headers.Get("Content-Type")) {
		out.Body = string(resp.Body)
	} else {
		out.Body = base64.StdEncoding.EncodeToString(resp.Body)
		out.IsBase64Encoded = true
	}
	return out
}

func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	essence, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	switch {
	case strings.HasPrefix(essence, "text/"),
		strings.HasSuffix(essence, "+json"),
		strings.HasSuffix(essence, "+xml"):
		return true
	}

	switch essence {
	case "application/json", "application/ld+json", "application/javascript",
		"application/xml", "application/x-www-form-urlencoded", "image/svg+xml":
		return true
	}
	return false
}
