package bot

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/stockgenie-bot/internal/alerts"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
)

type messenger interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier pushes scheduler-originated messages to a chat.
type Notifier struct {
	api    messenger
	policy apperrors.RetryPolicy
}

var _ alerts.Sender = (*Notifier)(nil)

func NewNotifier(api messenger) *Notifier {
	return &Notifier{api: api, policy: apperrors.DefaultRetryPolicy}
}

// Send delivers msg to the chat identified by userID, retrying throttling and Telegram server errors.
func (n *Notifier) Send(ctx context.Context, userID int64, msg alerts.Message) error {
	var opts []interface{}
	if msg.Markdown {
		opts = append(opts, telebot.ModeMarkdown)
	}

	err := apperrors.WithRetry(ctx, n.policy, retryableSendError, func() error {
		_, err := n.api.Send(telebot.ChatID(userID), msg.Text, opts...)
		return err
	})
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return apperrors.NewDeliveryError(userID, err)
	}
}

// serverErrorSuffix matches unmapped API errors, which telebot formats as "telegram: <description> (<code>)".
var serverErrorSuffix = regexp.MustCompile(`\((5\d\d)\)$`)

func retryableSendError(err error) bool {
	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return true
	}

	var apiErr *telebot.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	return serverErrorSuffix.MatchString(err.Error())
}
