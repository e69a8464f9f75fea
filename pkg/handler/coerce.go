package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"reflect"

	"lambda-http/pkg/httperr"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/request"
)

// coerce converts a handler result into a response.
func coerce(result any, req *request.Request) (*lambda.Response, error) {
	switch v := result.(type) {
	case nil:
		return lambda.NoContent(), nil
	case *lambda.Response:
		if v == nil {
			return lambda.NoContent(), nil
		}
		return v, nil
	case string:
		return lambda.Text(v), nil
	case json.RawMessage:
		resp := lambda.NewResponse(http.StatusOK, v, nil)
		resp.Headers.Set("Content-Type", "application/json")
		return resp, nil
	case []byte:
		return lambda.BlobResponse(lambda.Blob{Type: "application/octet-stream", Data: v}), nil
	case lambda.Blob:
		return lambda.BlobResponse(v), nil
	case *lambda.Blob:
		if v == nil {
			return lambda.NoContent(), nil
		}
		return lambda.BlobResponse(*v), nil
	case http.Header:
		resp := lambda.NoContent()
		resp.Headers = v.Clone()
		if resp.Headers == nil {
			resp.Headers = make(http.Header)
		}
		return resp, nil
	case *url.URL:
		if v == nil {
			return lambda.NoContent(), nil
		}
		return lambda.Redirect(req.URL().ResolveReference(v).String(), http.StatusFound), nil
	case url.URL:
		return lambda.Redirect(req.URL().ResolveReference(&v).String(), http.StatusFound), nil
	case *httperr.Error:
		if v == nil {
			return lambda.NoContent(), nil
		}
		return v.Response(), nil
	case error:
		var herr *httperr.Error
		if errors.As(v, &herr) {
			return herr.Response(), nil
		}
		return nil, httperr.Internal("Something broke", httperr.WithCause(v))
	}

	rv := reflect.ValueOf(result)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lambda.NewResponse(clampStatus(rv.Int()), nil, nil), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > 599 {
			u = 599
		}
		return lambda.NewResponse(clampStatus(int64(u)), nil, nil), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			return nil, httperr.Internal("cannot create a response from NaN")
		}
		if f > 599 {
			f = 599
		} else if f < 100 {
			f = 100
		}
		return lambda.NewResponse(clampStatus(int64(f)), nil, nil), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return lambda.NoContent(), nil
		}
		return encodeJSON(result)
	case reflect.Map, reflect.Slice, reflect.Struct, reflect.Array:
		return encodeJSON(result)
	default:
		return nil, httperr.Internal("cannot create a response from a " + rv.Kind().String())
	}
}

func clampStatus(status int64) int {
	switch {
	case status < 100:
		return 100
	case status > 599:
		return 599
	default:
		return int(status)
	}
}

func encodeJSON(v any) (*lambda.Response, error) {
	resp, err := lambda.JSON(v, http.StatusOK)
	if err != nil {
		return nil, httperr.Internal("cannot create a response from this value", httperr.WithCause(err))
	}
	return resp, nil
}
