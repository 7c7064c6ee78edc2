package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/action"
	"github.com/dshills/sitesmith/internal/engine/project"
)

var projectPage = template.Must(template.New("project").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Project.Title}}</title>
</head>
<body data-theme="{{.Project.Theme}}">
{{if .Banner}}<aside class="banner">{{.Banner}}</aside>{{end}}
{{range .Project.Pages}}
<article id="{{.Slug}}">
<h1>{{.Title}}</h1>
{{range .Sections}}
<section id="{{.ID}}" class="section-{{.Kind}}">
{{range $k, $v := .Props}}<div data-prop="{{$k}}">{{$v}}</div>
{{end}}
</section>
{{end}}
</article>
{{end}}
</body>
</html>
`))

var messagePage = template.Must(template.New("message").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
<p><a href="/">Go home</a></p>
</main>
</body>
</html>
`))

type projectPageData struct {
	Project project.Project
	Banner  string
}

func (s *Server) renderResult(w http.ResponseWriter, res action.Result, data func() projectPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !res.Success {
		status := http.StatusBadRequest
		if st, ok := statusByMessage[res.Error]; ok {
			status = st
		}
		w.WriteHeader(status)
		_ = messagePage.Execute(w, map[string]string{
			"Title":   http.StatusText(status),
			"Message": res.Error,
		})
		return
	}
	if err := projectPage.Execute(w, data()); err != nil {
		s.logger.Warn("render page failed", zap.Error(err))
	}
}

func (s *Server) handleSharePage(w http.ResponseWriter, r *http.Request) {
	res := s.cfg.Actions.ResolveShareLink(r.Context(), r.PathValue("token"))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Robots-Tag", "noindex")
	s.renderResult(w, res, func() projectPageData {
		shared := res.Data.(action.SharedProject)
		return projectPageData{
			Project: shared.Project,
			Banner:  "Shared preview, link expires " + shared.ExpiresAt.Format("Jan 2, 2006 15:04 MST"),
		}
	})
}

func (s *Server) handlePublishedPage(w http.ResponseWriter, r *http.Request) {
	res := s.cfg.Actions.PublishedProject(r.Context(), r.PathValue("id"))
	s.renderResult(w, res, func() projectPageData {
		return projectPageData{Project: res.Data.(project.Project)}
	})
}
