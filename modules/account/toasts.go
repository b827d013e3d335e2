package account

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/handler"
	"github.com/dmitrymomot/authkit/pkg/toast"
)

// toastStream pushes the toast list of the session on every change until
// the client disconnects.
func (s *Service) toastStream(ctx handler.Context, _ EmptyRequest) handler.Response {
	sess, _, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}
	q := s.queue(sess)

	return handler.SSE(func(sc handler.StreamContext) error {
		updates := make(chan []toast.Entry, 1)
		unsubscribe := q.Subscribe(func(entries []toast.Entry) {
			// Keep only the newest list.
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- entries:
			default:
			}
		})
		defer unsubscribe()

		if err := sc.SendComponent(s.views.Toasts(q.Entries()), handler.WithTarget(TargetToasts)); err != nil {
			return err
		}
		for {
			select {
			case <-sc.Done():
				return nil
			case entries := <-updates:
				if err := sc.SendComponent(s.views.Toasts(entries), handler.WithTarget(TargetToasts)); err != nil {
					return err
				}
			}
		}
	})
}

func (s *Service) dismissToast(ctx handler.Context, _ EmptyRequest) handler.Response {
	sess, _, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}
	s.queue(sess).Dismiss(chi.URLParam(ctx.Request(), "id"))
	return handler.Empty()
}
