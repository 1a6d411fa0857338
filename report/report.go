// Package report renders the answer of a query as a single self-contained
// HTML page.
package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/smallnest/insightgraph/log"
)

// Report is the content of one page.
type Report struct {
	Query    string
	Answer   string // markdown
	Overview string
	// Images are file paths; they are inlined as data URIs.
	Images []string
	// VisualizationError is shown when no image was produced.
	VisualizationError string
	GeneratedAt        time.Time
}

type image struct {
	Name string
	Src  template.URL
}

type page struct {
	Query              string
	Answer             template.HTML
	Overview           string
	Images             []image
	VisualizationError string
	GeneratedAt        string
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Query}}</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; line-height: 1.5; }
.overview { background: #f4f4f4; padding: 1em; white-space: pre-wrap; }
img { max-width: 90%; display: block; margin: 10px auto; }
footer { color: #888; font-size: small; }
</style>
</head>
<body>
<h1>{{.Query}}</h1>
<section class="overview">{{.Overview}}</section>
<section class="answer">{{.Answer}}</section>
{{if .Images}}<section class="images">
{{range .Images}}<figure><img src="{{.Src}}" alt="{{.Name}}"><figcaption>{{.Name}}</figcaption></figure>
{{end}}</section>{{else if .VisualizationError}}<p class="visualization-error">{{.VisualizationError}}</p>{{end}}
<footer>Generated {{.GeneratedAt}}</footer>
</body>
</html>
`))

// Render writes the page to w. Images that cannot be read are skipped.
func Render(w io.Writer, r Report) error {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	p := page{
		Query:              r.Query,
		Answer:             template.HTML(markdownToHTML(r.Answer)), // #nosec G203 -- sanitized by bluemonday
		Overview:           r.Overview,
		VisualizationError: r.VisualizationError,
		GeneratedAt:        r.GeneratedAt.Format(time.RFC1123),
	}
	for _, path := range r.Images {
		src, err := dataURI(path)
		if err != nil {
			log.Warn("report: skipping image %s: %v", path, err)
			continue
		}
		p.Images = append(p.Images, image{Name: filepath.Base(path), Src: src})
	}

	return pageTemplate.Execute(w, p)
}

// WriteFile renders the page into path.
func WriteFile(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := Render(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}

func markdownToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))
}

func dataURI(path string) (template.URL, error) {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("not an image: %q", mimeType)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	// #nosec G203 -- built from a file we read, not from user input
	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}
