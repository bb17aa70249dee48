package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Telegram delivers messages through the Telegram Bot API. The channel
// identifier is the target chat id.
type Telegram struct {
	bot *tele.Bot
}

func NewTelegram(token string, timeout time.Duration) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b}, nil
}

func (t *Telegram) Send(ctx context.Context, channelID, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", channelID, err)
	}

	msg, err := t.bot.Send(&tele.Chat{ID: chatID}, text)
	if err != nil {
		if retryAfter, ok := floodRetryAfter(err); ok {
			return "", &RateLimitError{RetryAfter: retryAfter}
		}
		return "", err
	}
	return strconv.Itoa(msg.ID), nil
}

func floodRetryAfter(err error) (time.Duration, bool) {
	var floodP *tele.FloodError
	if errors.As(err, &floodP) {
		return time.Duration(floodP.RetryAfter) * time.Second, true
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	return 0, false
}

var _ Client = (*Telegram)(nil)
