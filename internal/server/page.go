package server

import (
	"bytes"
	"html/template"

	"github.com/labstack/echo/v4"

	"github.com/aqua777/indexquery/internal/catalog"
)

type pageData struct {
	Title        string
	Descriptions []catalog.Description
	Indexes      []string
	Selected     string
	Query        string
	Answer       string
	Error        string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
textarea, select { width: 100%; box-sizing: border-box; margin-bottom: 1rem; }
textarea { min-height: 7rem; }
.output { white-space: pre-wrap; border: 1px solid #ccc; padding: 1rem; min-height: 4rem; }
.error { color: #b00020; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<ul>
{{- range .Descriptions}}
<li><b>{{.Label}}</b>: {{.Text}}</li>
{{- end}}
</ul>
<form method="post" action="/">
<label for="query">Enter your query</label>
<textarea id="query" name="query" rows="7">{{.Query}}</textarea>
<label for="index">Index</label>
<select id="index" name="index">
{{- $selected := .Selected}}
{{- range .Indexes}}
<option value="{{.}}"{{if eq . $selected}} selected{{end}}>{{.}}</option>
{{- end}}
</select>
<button type="submit">Submit</button>
</form>
<h2>Query Result</h2>
{{if .Error}}<div class="output error">{{.Error}}</div>{{else}}<div class="output">{{.Answer}}</div>{{end}}
</body>
</html>
`))

func (s *Server) render(c echo.Context, code int, data pageData) error {
	data.Title = s.title
	data.Descriptions = s.descriptions
	data.Indexes = s.chat.Indexes()

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}
