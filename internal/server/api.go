package server

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/dshills/sitesmith/internal/action"
	"github.com/dshills/sitesmith/internal/input/key"
	"github.com/dshills/sitesmith/internal/input/keymap"
)

const multipartMemory = 8 << 20

func (s *Server) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	email, err := formValue(w, r, "email")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(msgBadRequest))
		return
	}
	writeResult(w, s.cfg.Actions.SubscribeNewsletter(r.Context(), email))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id.UserID == "" {
		writeResult(w, action.Fail(action.MsgSignInToUpload))
		return
	}

	// Allow for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeResult(w, action.Fail(action.MsgFileTooLarge))
			return
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			writeResult(w, action.Fail(action.MsgNoFile))
			return
		}
		s.logger.Warn("parse upload failed", zap.Error(err))
		writeResult(w, action.Fail(action.MsgUploadFailed))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, header, err := r.FormFile("file")
	if err != nil {
		writeResult(w, action.Fail(action.MsgNoFile))
		return
	}
	defer f.Close()

	writeResult(w, s.cfg.Actions.UploadAsset(r.Context(), id, &action.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}))
}

// packView is a credit pack as shown to buyers.
type packView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Credits      int    `json:"credits"`
	PriceCents   int64  `json:"priceCents"`
	Currency     string `json:"currency"`
	DisplayPrice string `json:"displayPrice"`
}

// locale picks the display locale from ?locale=, then Accept-Language, then
// the configured default.
func (s *Server) locale(r *http.Request) language.Tag {
	if v := r.URL.Query().Get("locale"); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return tag
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		return tags[0]
	}
	return s.cfg.Locale
}

func (s *Server) handlePacks(w http.ResponseWriter, r *http.Request) {
	tag := s.locale(r)
	packs := s.cfg.Billing.Catalog().List()
	views := make([]packView, 0, len(packs))
	for _, p := range packs {
		views = append(views, packView{
			ID:           p.ID,
			Name:         p.Name,
			Credits:      p.Credits,
			PriceCents:   p.PriceCents,
			Currency:     p.Currency,
			DisplayPrice: p.DisplayPrice(tag),
		})
	}
	writeResult(w, action.OK(views))
}

// checkout is what the client hands to the payments provider.
type checkout struct {
	PackID  string `json:"pack_id"`
	PriceID string `json:"price_id"`
	UserID  string `json:"user_id"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id.UserID == "" {
		writeResult(w, action.Fail(action.MsgSignInRequired))
		return
	}
	packID := r.PathValue("id")
	priceID, err := s.cfg.Billing.Catalog().PriceID(packID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, failure("unknown pack"))
		return
	}
	writeResult(w, action.OK(checkout{PackID: packID, PriceID: priceID, UserID: id.UserID}))
}

// keymapView lists shortcuts for the help overlay.
type keymapView struct {
	Platform string                   `json:"platform"`
	Groups   []keymap.BindingCategory `json:"groups"`
}

func (s *Server) handleKeymap(w http.ResponseWriter, r *http.Request) {
	p := key.PlatformFromUserAgent(r.UserAgent())
	if v := r.URL.Query().Get("platform"); v != "" {
		p = key.ParsePlatform(v)
	}
	var bindings []keymap.Binding
	if s.cfg.Keymap != nil {
		bindings = s.cfg.Keymap.Bindings(p)
	}
	writeResult(w, action.OK(keymapView{Platform: p.String(), Groups: keymap.GroupByCategory(bindings)}))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.cfg.Actions.ListProjects(r.Context(), identity(r)))
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	url, err := formValue(w, r, "url")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(msgBadRequest))
		return
	}
	res := s.cfg.Actions.RebuildSite(r.Context(), identity(r), strings.TrimSpace(url))
	if !res.Success && strings.HasPrefix(res.Error, "rebuild failed") {
		writeJSON(w, http.StatusBadGateway, res)
		return
	}
	writeResult(w, res)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.cfg.Actions.PublishProject(r.Context(), identity(r), r.PathValue("id")))
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.cfg.Actions.CreateShareLink(r.Context(), identity(r), r.PathValue("id")))
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	email, err := formValue(w, r, "email")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(msgBadRequest))
		return
	}
	writeResult(w, s.cfg.Actions.InviteCollaborator(r.Context(), identity(r), r.PathValue("id"), email))
}

func (s *Server) handleCollaborators(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.cfg.Actions.ListCollaborators(r.Context(), identity(r), r.PathValue("id")))
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.cfg.Actions.AcceptInvitation(r.Context(), identity(r), r.PathValue("token")))
}

func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.cfg.Actions.ResolveShareLink(r.Context(), r.PathValue("token")))
}
