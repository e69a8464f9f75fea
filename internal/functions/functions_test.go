package functions

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"lambda-http/internal/auth"
	"lambda-http/pkg/handlertest"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/registry"
)

const site = "http://localhost:8888"

func newTestRegistry(t *testing.T) (*registry.Registry, *auth.Service) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	logger.SetOutput(io.Discard)

	svc := auth.NewService(auth.Config{Secret: "test-secret"})
	reg := registry.New()
	if err := Register(reg, Config{Auth: svc, Logger: logger}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return reg, svc
}

func req(path string, opts ...handlertest.Option) *lambda.Request {
	return handlertest.MustRequest(handlertest.NewRequest(site+BasePath+path, opts...))
}

func bodyEquals(want string) handlertest.Assertion {
	return func(resp *lambda.Response, raw *lambda.Request) error {
		if string(resp.Body) != want {
			return fmt.Errorf("%s <%s> body = %q, want %q", raw.Method, raw.URL, resp.Body, want)
		}
		return nil
	}
}

func bodyContains(sub string) handlertest.Assertion {
	return func(resp *lambda.Response, raw *lambda.Request) error {
		if !strings.Contains(string(resp.Body), sub) {
			return fmt.Errorf("%s <%s> body should contain %q", raw.Method, raw.URL, sub)
		}
		return nil
	}
}

func TestRegister(t *testing.T) {
	reg, _ := newTestRegistry(t)
	want := []string{"auth", "base64", "cookie", "cors", "echo", "error", "hash", "jwt", "jwtgen", "page", "redirect", "reset", "svg"}
	got := reg.Paths()
	if len(got) != len(want) {
		t.Fatalf("Paths() = %v", got)
	}
	for i, name := range want {
		if got[i] != BasePath+"/"+name {
			t.Errorf("Paths()[%d] = %q, want %q", i, got[i], BasePath+"/"+name)
		}
	}

	if err := Register(registry.New(), Config{}); err == nil {
		t.Error("Register() without an auth service should fail")
	}
	if err := Register(reg, Config{Auth: auth.NewService(auth.Config{Secret: "x"})}); err == nil {
		t.Error("registering twice should fail")
	}
}

func TestEcho(t *testing.T) {
	reg, _ := newTestRegistry(t)
	const other = "https://example.com"

	err := handlertest.Run(reg.Fetch,
		handlertest.Case{
			Request: req("/echo", handlertest.WithOrigin(other)),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldBeOK,
				handlertest.ShouldBeJSON,
				handlertest.ShouldHaveJSONKeys("url", "method", "headers", "body"),
				handlertest.ShouldBeCORSResponse,
				handlertest.ShouldSetCookies("foo"),
			},
		},
		handlertest.Case{
			Request: handlertest.MustRequest(handlertest.JSONRequest(map[string]int{"n": 1}, site+"/api/echo")),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldBeOK,
				bodyContains(`"body":{"n":1}`),
			},
		},
		handlertest.Case{
			Request: req("/echo",
				handlertest.WithMethod(http.MethodPatch),
				handlertest.WithHeader("Content-Type", "application/x-www-form-urlencoded"),
				handlertest.WithBody([]byte("a=1&a=2"))),
			Assertions: []handlertest.Assertion{bodyContains(`"body":{"a":["1","2"]}`)},
		},
		handlertest.Case{
			Request: req("/echo",
				handlertest.WithMethod(http.MethodPost),
				handlertest.WithHeader("Content-Type", "image/png"),
				handlertest.WithBody([]byte{1, 2, 3})),
			Assertions: []handlertest.Assertion{bodyContains(`"body":{"size":3,"type":"image/png"}`)},
		},
		handlertest.Case{
			Request: req("/echo",
				handlertest.WithMethod(http.MethodPut),
				handlertest.WithHeader("Content-Type", "text/plain"),
				handlertest.WithBody([]byte("hello"))),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldBeOK,
				handlertest.ShouldHaveContentType("text/plain"),
				bodyEquals("hello"),
			},
		},
		handlertest.Case{
			Request: req("/echo",
				handlertest.WithMethod(http.MethodPost),
				handlertest.WithBody(make([]byte, echoMaxContentLength+1))),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldHaveStatus(http.StatusRequestEntityTooLarge),
				handlertest.ShouldBeErrorBody,
			},
		},
		handlertest.Case{
			Request:    req("/echo", handlertest.WithMethod("PROPFIND")),
			Assertions: []handlertest.Assertion{handlertest.ShouldNotAllowMethod, handlertest.ShouldHaveHeader("Allow")},
		},
		handlertest.Case{
			Request: req("/echo",
				handlertest.WithMethod(http.MethodOptions),
				handlertest.WithOrigin(other),
				handlertest.WithHeader("Access-Control-Request-Method", http.MethodPut)),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldHaveStatus(http.StatusNoContent),
				handlertest.ShouldPassPreflight,
				handlertest.ShouldNotSetCookies("foo"),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestCORSAndErrors(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := handlertest.Run(reg.Fetch,
		handlertest.Case{
			Request: req("/cors",
				handlertest.WithMethod(http.MethodPost),
				handlertest.WithOrigin("https://example.com")),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldBeOK,
				handlertest.ShouldHaveJSONKeys("origin", "mode", "destination", "headers"),
				handlertest.ShouldBeCORSResponse,
			},
		},
		handlertest.Case{
			Request: req("/error", handlertest.WithOrigin("http://localhost:9999")),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldHaveStatus(http.StatusBadGateway),
				handlertest.ShouldBeErrorBody,
				handlertest.ShouldBeCORSResponse,
				handlertest.ShouldExposeHeaders("X-Foo"),
				bodyContains("Oops. Something broke :("),
			},
		},
		handlertest.Case{
			Request: req("/error", handlertest.WithOrigin("http://localhost:7777")),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldHaveStatus(http.StatusForbidden),
				handlertest.ShouldDisallowOrigin,
			},
		},
		handlertest.Case{
			Request:    req("/nope"),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusNotFound), handlertest.ShouldBeErrorBody},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestAuth(t *testing.T) {
	reg, _ := newTestRegistry(t)
	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte(`{"user":"me"}`))

	err := handlertest.Run(reg.Fetch,
		handlertest.Case{
			Request: req("/auth",
				handlertest.WithOrigin("http://localhost:9999"),
				handlertest.WithHeader("Authorization", basic)),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldBeOK,
				handlertest.ShouldHaveJSONKeys("user"),
				handlertest.ShouldBeCORSResponse,
			},
		},
		handlertest.Case{
			Request:    req("/auth", handlertest.WithOrigin("http://localhost:9999")),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusUnauthorized)},
		},
		handlertest.Case{
			Request: req("/auth",
				handlertest.WithOrigin("http://localhost:1234"),
				handlertest.WithHeader("Authorization", basic)),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusForbidden)},
		},
		handlertest.Case{
			Request:    req("/auth", handlertest.WithHeader("Authorization", "Basic !!!")),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusBadRequest)},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestEncoders(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := handlertest.Run(reg.Fetch,
		handlertest.Case{
			Request: req("/base64",
				handlertest.WithMethod(http.MethodPost),
				handlertest.WithHeader("Content-Type", "text/plain"),
				handlertest.WithBody([]byte("hi"))),
			Assertions: []handlertest.Assertion{handlertest.ShouldBeOK, bodyEquals("data:text/plain;base64,aGk=")},
		},
		handlertest.Case{
			Request: req("/hash",
				handlertest.WithMethod(http.MethodPost),
				handlertest.WithBody([]byte("abc"))),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldBeOK,
				bodyEquals("ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a" +
					"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"),
			},
		},
		handlertest.Case{
			Request:    req("/hash"),
			Assertions: []handlertest.Assertion{handlertest.ShouldNotAllowMethod},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestNavigation(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := handlertest.Run(reg.Fetch,
		handlertest.Case{
			Request:    req("/redirect"),
			Assertions: []handlertest.Assertion{handlertest.ShouldRedirectTo(site + "/api/echo")},
		},
		handlertest.Case{
			Request: req("/reset", handlertest.WithOrigin(site)),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldHaveStatus(http.StatusNoContent),
				handlertest.ShouldHaveHeader("Clear-Site-Data"),
				handlertest.ShouldNotHaveBody,
			},
		},
		handlertest.Case{
			Request:    req("/reset", handlertest.WithOrigin("https://example.com")),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusForbidden)},
		},
		handlertest.Case{
			Request:    req("/cookie", handlertest.WithHeader("Cookie", "foo=bar; theme=dark")),
			Assertions: []handlertest.Assertion{handlertest.ShouldBeJSON, handlertest.ShouldHaveJSONKeys("foo", "theme")},
		},
		handlertest.Case{
			Request: req("/svg", handlertest.WithHeader("Cookie", "theme=dark")),
			Assertions: []handlertest.Assertion{
				handlertest.ShouldHaveContentType("image/svg+xml"),
				bodyContains("#232323"),
				bodyContains("Method: GET"),
			},
		},
		handlertest.Case{
			Request:    req("/svg"),
			Assertions: []handlertest.Assertion{bodyContains("#f8f8f8")},
		},
		handlertest.Case{
			Request:    req("/page"),
			Assertions: []handlertest.Assertion{handlertest.ShouldBeOK, handlertest.ShouldBeHTML, handlertest.ShouldHaveBody},
		},
		handlertest.Case{
			Request:    req("/page", handlertest.WithMethod(http.MethodHead)),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusNoContent)},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestJWT(t *testing.T) {
	reg, svc := newTestRegistry(t)

	token, err := svc.GenerateToken("tester")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	forged, _ := auth.NewService(auth.Config{Secret: "other"}).GenerateToken("tester")

	err = handlertest.Run(reg.Fetch,
		handlertest.Case{
			Request:    req("/jwt", handlertest.WithMethod(http.MethodPost), handlertest.WithToken(token)),
			Assertions: []handlertest.Assertion{handlertest.ShouldBeOK, handlertest.ShouldHaveJSONKeys("token", "result")},
		},
		handlertest.Case{
			Request:    req("/jwt", handlertest.WithMethod(http.MethodPost), handlertest.WithToken(forged)),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusUnauthorized), handlertest.ShouldBeErrorBody},
		},
		handlertest.Case{
			Request:    req("/jwt", handlertest.WithMethod(http.MethodPost)),
			Assertions: []handlertest.Assertion{handlertest.ShouldHaveStatus(http.StatusUnauthorized)},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	resp := reg.Fetch(req("/jwtgen"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("jwtgen status = %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("jwtgen body: %v", err)
	}
	claims, err := svc.ValidateToken(body.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Origin != site || len(claims.Audience) != 1 || claims.Audience[0] != site {
		t.Errorf("claims = %+v, want origin %s", claims, site)
	}
}
