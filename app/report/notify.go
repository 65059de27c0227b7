package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
)

//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . notifier:NotifierMock

// notifier is a subset of go-pkgz/notify senders used by the service
type notifier interface {
	Send(ctx context.Context, destination, text string) error
	Schema() string
}

// SMTPParams holds smtp connection details for mailto destinations
type SMTPParams struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	TimeOut  time.Duration
}

// SlackParams holds the api token for slack destinations
type SlackParams struct {
	Token string
}

// Sender delivers rendered reports to a set of destination URLs
// (mailto:..., slack:..., https://... webhooks)
type Sender struct {
	destinations []string
	notifiers    []notifier
}

// NewSender creates a sender for the given destinations. Returns nil when
// there is nothing to deliver to, callers treat nil as "notifications off".
func NewSender(destinations []string, smtp SMTPParams, slack SlackParams) *Sender {
	if len(destinations) == 0 {
		return nil
	}

	res := &Sender{destinations: destinations}
	for _, dest := range destinations {
		switch {
		case strings.HasPrefix(dest, "mailto:"):
			res.addNotifier(notify.NewEmail(notify.SMTPParams{
				Host:        smtp.Host,
				Port:        smtp.Port,
				TLS:         smtp.TLS,
				Username:    smtp.Username,
				Password:    smtp.Password,
				TimeOut:     smtp.TimeOut,
				ContentType: "text/plain",
			}))
		case strings.HasPrefix(dest, "slack:"):
			res.addNotifier(notify.NewSlack(slack.Token))
		case strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://"):
			res.addNotifier(notify.NewWebhook(notify.WebhookParams{Timeout: smtp.TimeOut}))
		default:
			log.Printf("[WARN] unsupported notify destination %q, ignored", dest)
		}
	}
	if len(res.notifiers) == 0 {
		return nil
	}
	return res
}

// addNotifier registers a notifier unless its schema is already covered
func (s *Sender) addNotifier(n notifier) {
	for _, existing := range s.notifiers {
		if existing.Schema() == n.Schema() {
			return
		}
	}
	s.notifiers = append(s.notifiers, n)
}

// Send delivers the text to all destinations, collecting errors instead of
// stopping at the first failed one
func (s *Sender) Send(ctx context.Context, subj, text string) error {
	var errs []error
	for _, dest := range s.destinations {
		n := s.pick(dest)
		if n == nil {
			continue
		}
		if err := n.Send(ctx, withSubject(dest, subj), text); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", dest, err))
			continue
		}
		log.Printf("[INFO] report sent to %s", dest)
	}
	return errors.Join(errs...)
}

func (s *Sender) pick(dest string) notifier {
	for _, n := range s.notifiers {
		if strings.HasPrefix(dest, n.Schema()) {
			return n
		}
	}
	return nil
}

// withSubject injects the subject into mailto and slack destinations unless
// the destination sets one already
func withSubject(dest, subj string) string {
	if subj == "" || (!strings.HasPrefix(dest, "mailto:") && !strings.HasPrefix(dest, "slack:")) {
		return dest
	}
	key := "subject"
	if strings.HasPrefix(dest, "slack:") {
		key = "title"
	}
	if strings.Contains(dest, key+"=") {
		return dest
	}
	sep := "?"
	if strings.Contains(dest, "?") {
		sep = "&"
	}
	return dest + sep + key + "=" + url.QueryEscape(subj)
}
