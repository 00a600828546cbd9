package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/resource-showcase/internal/model"
)

// Page names, one template file each under templates/.
const (
	PageHome      = "index"
	PageResources = "resources"
	PageAdmin     = "admin"
)

// SiteInfo is shown in every page's header and footer.
type SiteInfo struct {
	Name        string
	Tagline     string
	GitHubLogin bool // show the "Sign in with GitHub" button
}

// PageHandler renders the HTML shells. The pages load their data from the
// JSON API in the browser; the server only fills in the static parts.
type PageHandler struct {
	pages  map[string]*template.Template
	site   SiteInfo
	logger *slog.Logger
}

// NewPageHandler parses every page together with base.html so each can fill
// the "content" block the base layout leaves open. Templates are parsed once
// at startup.
func NewPageHandler(files fs.FS, site SiteInfo, logger *slog.Logger) (*PageHandler, error) {
	h := &PageHandler{pages: make(map[string]*template.Template), site: site, logger: logger}
	for _, name := range []string{PageHome, PageResources, PageAdmin} {
		tmpl, err := template.ParseFS(files, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s page: %w", name, err)
		}
		h.pages[name] = tmpl
	}
	return h, nil
}

type pageData struct {
	Site       SiteInfo
	Title      string
	Active     string
	Categories []model.CategoryInfo
}

// Page returns the handler for one named page.
func (h *PageHandler) Page(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, ok := h.pages[name]
		if !ok {
			NotFound(w, r)
			return
		}

		// Rendering into a buffer means a template error still produces a
		// clean 500 instead of half a page.
		var buf bytes.Buffer
		err := tmpl.ExecuteTemplate(&buf, "base", pageData{
			Site:       h.site,
			Title:      title,
			Active:     name,
			Categories: model.Categories(),
		})
		if err != nil {
			h.logger.Error("failed to render template",
				slog.String("page", name),
				slog.String("error", err.Error()),
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		buf.WriteTo(w)
	}
}
