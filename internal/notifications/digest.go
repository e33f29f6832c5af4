// Package notifications emails users a digest of chat messages they have
// left unread for a while. Each message is emailed about at most once.
package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/models"
)

// MessageStore reads and flags unread messages
type MessageStore interface {
	ListUnnotified(ctx context.Context, olderThan time.Time) ([]models.Message, error)
	MarkNotified(ctx context.Context, ids []string) error
}

// Mailer sends one rendered email
type Mailer interface {
	SendMail(ctx context.Context, to, subject, htmlBody string) error
}

// Digester batches unread messages per recipient and sends digest emails
type Digester struct {
	messages  MessageStore
	mailer    Mailer
	unreadFor time.Duration
	interval  time.Duration
	logger    logging.Logger
}

// NewDigester creates a digest worker. Messages younger than unreadFor are
// left alone so a user reading in real time is not emailed about a
// conversation they are in.
func NewDigester(messages MessageStore, mailer Mailer, unreadFor, interval time.Duration, logger logging.Logger) *Digester {
	if unreadFor <= 0 {
		unreadFor = 30 * time.Minute
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Digester{
		messages:  messages,
		mailer:    mailer,
		unreadFor: unreadFor,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs the digest loop until the context is cancelled
func (d *Digester) Start(ctx context.Context) {
	d.logger.WithField("interval", d.interval.String()).Info("Starting unread message digester")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Unread message digester stopped")
			return
		case <-ticker.C:
			if err := d.Run(ctx); err != nil {
				d.logger.WithError(err).Error("Digest run failed")
			}
		}
	}
}

// Run performs one digest pass: collect, group per recipient, send, mark.
// Messages are marked notified only after their email went out, so a send
// failure leaves them eligible for the next pass.
func (d *Digester) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-d.unreadFor)
	unread, err := d.messages.ListUnnotified(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	sent := 0
	for _, digest := range groupUnread(unread) {
		subject := fmt.Sprintf("You have %d unread message(s)", len(digest.Messages))
		if err := d.mailer.SendMail(ctx, digest.UserEmail, subject, renderDigest(digest)); err != nil {
			d.logger.WithError(err).WithField("recipient", digest.UserEmail).Error("Failed to send digest email")
			continue
		}

		ids := make([]string, len(digest.Messages))
		for i, m := range digest.Messages {
			ids[i] = m.ID
		}
		if err := d.messages.MarkNotified(ctx, ids); err != nil {
			d.logger.WithError(err).WithField("recipient", digest.UserEmail).Error("Failed to mark messages notified")
			continue
		}
		sent++
	}

	d.logger.WithFields(logging.Fields{
		"messages": len(unread),
		"emails":   sent,
	}).Info("Digest pass complete")
	return nil
}

// groupUnread folds messages into one digest per recipient, in the order
// recipients first appear
func groupUnread(unread []models.Message) []models.UnreadDigest {
	index := make(map[string]int)
	var digests []models.UnreadDigest
	for _, m := range unread {
		if m.Recipient == "" {
			continue
		}
		i, seen := index[m.Recipient]
		if !seen {
			i = len(digests)
			index[m.Recipient] = i
			digests = append(digests, models.UnreadDigest{UserEmail: m.Recipient})
		}
		digests[i].Messages = append(digests[i].Messages, m)
	}
	return digests
}

func renderDigest(digest models.UnreadDigest) string {
	var b strings.Builder
	b.WriteString("<h3>While you were away</h3>")

	byChannel := make(map[string][]models.Message)
	var order []string
	for _, m := range digest.Messages {
		if _, seen := byChannel[m.ChannelName]; !seen {
			order = append(order, m.ChannelName)
		}
		byChannel[m.ChannelName] = append(byChannel[m.ChannelName], m)
	}

	for _, channel := range order {
		fmt.Fprintf(&b, "<h4>#%s</h4><ul>", html.EscapeString(channel))
		for _, m := range byChannel[channel] {
			fmt.Fprintf(&b, "<li><strong>%s</strong>: %s</li>",
				html.EscapeString(m.AuthorName), html.EscapeString(m.Content))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}
