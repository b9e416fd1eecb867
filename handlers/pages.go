package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	msgLinkNotFound  = "Whoops. We couldn't find your confirmation link in the system."
	msgLinkMalformed = "Whoops. The confirmation link is malformed."
	msgLinkExpired   = "The confirmation link has expired or been deactivated."
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

type pageData struct {
	Title   string
	Message string
}

func renderPage(c echo.Context, status int, title, message string) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{Title: title, Message: message}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.HTMLBlob(status, buf.Bytes())
}
