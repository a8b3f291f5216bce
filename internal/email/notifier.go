package email

import (
	"fmt"

	"github.com/charo360/nevis-connect/internal/observability/logger"
)

// LinkNotifier mails the user after a platform is linked. Delivery is
// fire-and-forget: the linking flow never waits on SMTP.
type LinkNotifier struct {
	Sender Sender
	// ResolveEmail maps a user ID to a destination address. Users
	// without an address are skipped silently.
	ResolveEmail func(userID string) (string, bool)
}

func (n *LinkNotifier) ConnectionLinked(userID, platform, handle string) {
	if n == nil || n.Sender == nil || n.ResolveEmail == nil {
		return
	}
	to, ok := n.ResolveEmail(userID)
	if !ok || to == "" {
		return
	}
	go func() {
		subject := fmt.Sprintf("Your %s account is connected", platform)
		text := fmt.Sprintf("The %s account @%s is now linked and ready to publish.", platform, handle)
		html := fmt.Sprintf("<p>The <strong>%s</strong> account <strong>@%s</strong> is now linked and ready to publish.</p>", platform, handle)
		if err := n.Sender.Send(to, subject, html, text); err != nil {
			logger.L().Warn("link notification failed",
				logger.Component("LinkNotifier"),
				logger.Platform(platform),
				logger.Err(err),
			)
		}
	}()
}
