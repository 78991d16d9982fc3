package browser

import (
	"github.com/shelf-tools/gleaner/internal/types"
)

// ScrollToBottom jumps straight to the bottom of the page, which fires
// the scroll listeners lazy loaders register on. It runs once per scrape:
// looping until the height stops growing belongs to a crawler, not a
// single-page scrape.
func (s *Session) ScrollToBottom() error {
	if _, err := s.page.Eval(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return &types.BrowserError{Stage: "scroll", Err: err}
	}
	return nil
}
