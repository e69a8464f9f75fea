package functions

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"lambda-http/pkg/handler"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

const (
	mimeSVG  = "image/svg+xml"
	mimeHTML = "text/html"
)

const page = `<!DOCTYPE html>
<html lang="en" dir="ltr">
	<head>
		<meta charset="utf-8" />
		<meta name="viewport" content="width=device-width" />
		<meta name="color-scheme" content="light dark" />
		<title>Functions Test</title>
	</head>
	<body>
		<p>Hello, World!</p>
	</body>
</html>
`

// svgFunction renders request details as an SVG, themed by the "theme" cookie.
func svgFunction(cfg Config) function {
	return function{
		name: "svg",
		handlers: handler.Handlers{
			http.MethodGet: func(req *request.Request, _ *platform.Context) (any, error) {
				fill, color := "#f8f8f8", "#333"
				if theme, _ := req.Cookie("theme"); theme != "" && theme != "light" {
					fill, color = "#232323", "#fafafa"
				}

				lines := []struct{ label, value string }{
					{"URL", req.Href()},
					{"Method", req.Method()},
					{"Referrer", req.Referrer()},
					{"Mode", req.Mode()},
					{"Dest", req.Destination()},
					{"Credentials", req.Credentials()},
					{"Accept", req.Header().Get("Accept")},
				}

				var b strings.Builder
				b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="590" height="100">` + "\n")
				fmt.Fprintf(&b, "\t<rect width=\"100%%\" height=\"100%%\" fill=\"%s\"/>\n", fill)
				for i, line := range lines {
					fmt.Fprintf(&b, "\t<text x=\"10\" y=\"%d\" font-family=\"monospace\" font-size=\"12\" fill=\"%s\">%s: %s</text>\n",
						20+i*12, color, line.label, html.EscapeString(line.value))
				}
				b.WriteString("</svg>\n")

				resp := lambda.NewResponse(http.StatusOK, []byte(b.String()), nil)
				resp.Headers.Set("Content-Type", mimeSVG)
				return resp, nil
			},
		},
		policy: handler.Policy{Logger: handler.LogrusLogger(cfg.Logger)},
	}
}

func pageFunction() function {
	return function{
		name: "page",
		handlers: handler.Handlers{
			http.MethodGet: func(*request.Request, *platform.Context) (any, error) {
				resp := lambda.NewResponse(http.StatusOK, []byte(page), nil)
				resp.Headers.Set("Content-Type", mimeHTML)
				return resp, nil
			},
		},
	}
}
