package handler

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

// TemplOption configures how a component is patched into the page.
type TemplOption = datastar.PatchElementOption

// WithTarget sets the CSS selector the component is patched into.
func WithTarget(selector string) TemplOption {
	return datastar.WithSelector(selector)
}

// WithPatchMode sets how the component is merged into the DOM.
func WithPatchMode(mode datastar.ElementPatchMode) TemplOption {
	return datastar.WithMode(mode)
}

// TemplPatch is a component paired with its patch options.
type TemplPatch struct {
	Component templ.Component
	Options   []TemplOption
}

// Patch creates a TemplPatch for TemplMulti.
func Patch(component templ.Component, opts ...TemplOption) TemplPatch {
	return TemplPatch{Component: component, Options: opts}
}

func writeHTML(w http.ResponseWriter, r *http.Request, components ...templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	for _, c := range components {
		if err := c.Render(r.Context(), w); err != nil {
			return err
		}
	}
	return nil
}

type templResponse struct {
	component templ.Component
	options   []TemplOption
}

func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		return NewSSE(w, r).PatchElementTempl(t.component, t.options...)
	}
	return writeHTML(w, r, t.component)
}

// Templ renders component as HTML, or as a single element patch for
// Datastar requests.
func Templ(component templ.Component, opts ...TemplOption) Response {
	return templResponse{component: component, options: opts}
}

type templPartialResponse struct {
	partial templ.Component
	full    templ.Component
	options []TemplOption
}

func (t templPartialResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		return NewSSE(w, r).PatchElementTempl(t.partial, t.options...)
	}
	return writeHTML(w, r, t.full)
}

// TemplPartial patches partial for Datastar requests and renders the full
// page otherwise. Screens use it so a form works without JavaScript.
func TemplPartial(partial, full templ.Component, opts ...TemplOption) Response {
	return templPartialResponse{partial: partial, full: full, options: opts}
}

type templMultiResponse struct {
	patches []TemplPatch
	full    templ.Component
}

func (t templMultiResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		sse := NewSSE(w, r)
		for _, p := range t.patches {
			if err := sse.PatchElementTempl(p.Component, p.Options...); err != nil {
				return err
			}
		}
		return nil
	}
	if t.full != nil {
		return writeHTML(w, r, t.full)
	}
	components := make([]templ.Component, 0, len(t.patches))
	for _, p := range t.patches {
		components = append(components, p.Component)
	}
	return writeHTML(w, r, components...)
}

// TemplMulti sends every patch for Datastar requests. Regular requests get
// the patches concatenated.
func TemplMulti(patches ...TemplPatch) Response {
	return templMultiResponse{patches: patches}
}

// TemplMultiOrPage sends patches for Datastar requests and full otherwise.
func TemplMultiOrPage(full templ.Component, patches ...TemplPatch) Response {
	return templMultiResponse{patches: patches, full: full}
}

type statusResponse struct {
	status int
	next   Response
}

func (s statusResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if !IsDataStar(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(s.status)
	}
	return s.next.Render(w, r)
}

// WithStatus sets the status code of a non-Datastar response. Datastar
// streams always answer 200.
func WithStatus(status int, resp Response) Response {
	return statusResponse{status: status, next: resp}
}
