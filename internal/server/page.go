package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed static/index.html static/help.md
var staticFS embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

type indexData struct {
	AppName   string
	Source    string
	RowHeight int
	Overscan  int
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	st := s.snapshot()
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, indexData{
		AppName:   s.cfg.AppName,
		Source:    st.source,
		RowHeight: s.cfg.RowHeight,
		Overscan:  s.cfg.Overscan,
	})
	if err != nil {
		s.log.Error(err, "render index")
		http.Error(w, "render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

var (
	helpOnce sync.Once
	helpHTML []byte
	helpErr  error
)

// renderHelp converts the embedded help Markdown into a complete page.
func renderHelp() ([]byte, error) {
	helpOnce.Do(func() {
		md, err := staticFS.ReadFile("static/help.md")
		if err != nil {
			helpErr = err
			return
		}
		extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
		p := parser.NewWithExtensions(extensions)
		doc := p.Parse(md)

		htmlFlags := html.CommonFlags | html.HrefTargetBlank | html.CompletePage
		renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags, Title: "jvx help"})
		helpHTML = markdown.Render(doc, renderer)
	})
	return helpHTML, helpErr
}

func (s *Server) handleHelp(w http.ResponseWriter, _ *http.Request) {
	page, err := renderHelp()
	if err != nil {
		s.log.Error(err, "render help")
		http.Error(w, "render help", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
