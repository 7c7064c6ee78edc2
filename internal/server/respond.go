package server

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dshills/sitesmith/internal/action"
	"github.com/dshills/sitesmith/internal/engine/project"
)

const (
	msgInternal   = "internal error"
	msgBadRequest = "invalid request body"
	maxBodyBytes  = 1 << 20
)

var api = project.API()

func failure(msg string) action.Result {
	return action.Fail(msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := api.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = api.Marshal(failure(msgInternal))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// statusByMessage maps action failure messages to HTTP statuses.
var statusByMessage = map[string]int{
	action.MsgSignInToUpload:     http.StatusUnauthorized,
	action.MsgSignInRequired:     http.StatusUnauthorized,
	action.MsgForbidden:          http.StatusForbidden,
	action.MsgProjectNotFound:    http.StatusNotFound,
	action.MsgShareLinkNotFound:  http.StatusNotFound,
	action.MsgInvitationNotFound: http.StatusNotFound,
	action.MsgShareLinkExpired:   http.StatusGone,
	action.MsgInvitationExpired:  http.StatusGone,
	action.MsgInvitationUsed:     http.StatusConflict,
	action.MsgFileTooLarge:       http.StatusRequestEntityTooLarge,
	action.MsgRebuildUnavailable: http.StatusServiceUnavailable,
	action.MsgUploadFailed:       http.StatusInternalServerError,
	action.MsgSubscribeFailed:    http.StatusInternalServerError,
	action.MsgSomethingWentWrong: http.StatusInternalServerError,
}

// writeResult writes an action result with a status derived from it.
func writeResult(w http.ResponseWriter, res action.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
		if s, ok := statusByMessage[res.Error]; ok {
			status = s
		}
	}
	writeJSON(w, status, res)
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return errors.New("content type must be application/json")
		}
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return api.Unmarshal(body, v)
}

// formValue reads a field from a JSON body or a submitted form.
func formValue(w http.ResponseWriter, r *http.Request, field string) (string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		return r.FormValue(field), nil
	}
	var body map[string]string
	if err := decodeJSON(w, r, &body); err != nil {
		return "", err
	}
	return body[field], nil
}
