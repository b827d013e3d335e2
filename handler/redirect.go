package handler

import (
	"net/http"
	"net/url"
)

type redirectResponse struct {
	url  string
	code int
}

func (r redirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	if IsDataStar(req) {
		return NewSSE(w, req).Redirect(r.url)
	}
	http.Redirect(w, req, r.url, r.code)
	return nil
}

// Redirect navigates to url with 303 See Other, or through a Datastar
// script patch for Datastar requests.
func Redirect(url string) Response {
	return redirectResponse{url: url, code: http.StatusSeeOther}
}

// RedirectWithCode is Redirect with an explicit status code.
func RedirectWithCode(url string, code int) Response {
	return redirectResponse{url: url, code: code}
}

// IsLocalPath reports whether target is a same-origin absolute path, safe to
// use as a post-login redirect.
func IsLocalPath(target string) bool {
	if target == "" || target[0] != '/' || len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}
