package linkgw

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var popupTemplate = template.Must(template.ParseFS(templatesFS, "templates/popup.html"))

// popupPage is rendered into the provider popup. The script posts Payload to
// the opener window and closes the popup.
type popupPage struct {
	OK           bool
	Provider     string
	Message      string
	Payload      any
	TargetOrigin string
}

func (rt *Runtime) renderPopup(w http.ResponseWriter, status int, page popupPage) {
	if page.Message == "" {
		if page.OK {
			page.Message = "You can close this window."
		} else {
			page.Message = "Please try again."
		}
	}
	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, page); err != nil {
		rt.logger.Errorw("failed to render popup", "provider", page.Provider, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
