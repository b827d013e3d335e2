// Package binder populates request structs from form bodies and query
// strings using struct tags (`form:"email"`, `query:"code"`).
package binder

import (
	"fmt"
	"mime"
	"net/http"
)

// MaxFormSize bounds urlencoded request bodies.
const MaxFormSize = 64 << 10

// Form binds application/x-www-form-urlencoded bodies to `form` tags.
// Multipart bodies are parsed for their value parts only.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			return ErrBinderNotApplicable
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return ErrBinderNotApplicable
		}

		switch mediaType {
		case "application/x-www-form-urlencoded":
			r.Body = http.MaxBytesReader(nil, r.Body, MaxFormSize)
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindToStruct(v, "form", r.PostForm, ErrInvalidForm)
		case "multipart/form-data":
			if err := r.ParseMultipartForm(MaxFormSize); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindToStruct(v, "form", r.MultipartForm.Value, ErrInvalidForm)
		default:
			return ErrBinderNotApplicable
		}
	}
}

// Query binds URL query parameters to `query` tags.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrInvalidQuery)
	}
}
