// Package notification sends the portal's transactional emails. State
// changes never wait on it: services hand a fully committed Intent to the
// Dispatcher and move on; a send failure is logged and retried once, never
// surfaced to the operation that triggered it.
package notification

import (
	"context"

	"github.com/imsulglobal/community-portal/internal/capacity"
)

// Intent describes one email to send, decoupled from the act of sending it.
// Services build intents after their transaction commits.
type Intent struct {
	Recipient string
	Name      string
	Kind      capacity.MailKind
	// Offering is the workshop or position title the mail refers to.
	Offering string
	// Details carries template-specific lines, e.g. workshop dates.
	Details map[string]string
}

// Mailer delivers a single intent.
type Mailer interface {
	Send(ctx context.Context, intent Intent) error
}
