package listview

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/logger"
)

// FeedSubscriber maintains a live server-sent-events subscription to the
// change feed of the session's owner. Any received change event, regardless
// of its shape, is collapsed into a wake-up signal telling the consumer to
// reload the full list.
type FeedSubscriber struct {
	http           *resty.Client
	reconnectDelay time.Duration
}

// NewFeedSubscriber creates a subscriber for the given service base URL,
// authenticating with the provided session cookie.
func NewFeedSubscriber(baseURL string, sessionCookie *http.Cookie) *FeedSubscriber {
	httpClient := resty.New().SetBaseURL(baseURL)
	if sessionCookie != nil {
		httpClient.SetCookie(sessionCookie)
	}

	return &FeedSubscriber{
		http:           httpClient,
		reconnectDelay: 3 * time.Second,
	}
}

// Subscribe opens the event stream and returns a channel that signals on
// every change event. The channel has a coalescing buffer of one pending
// signal, matching the at-least-once, reload-everything reconciliation
// policy. The stream reconnects after transport failures and closes the
// channel when ctx is cancelled.
func (s *FeedSubscriber) Subscribe(ctx context.Context) <-chan struct{} {
	signals := make(chan struct{}, 1)

	go func() {
		defer close(signals)

		for {
			if err := s.consumeStream(ctx, signals); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Log.Debugln("change feed stream interrupted, reconnecting", "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}
		}
	}()

	return signals
}

func (s *FeedSubscriber) consumeStream(ctx context.Context, signals chan<- struct{}) error {
	response, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/api/bookmarks/events")
	if err != nil {
		return err
	}

	body := response.RawBody()
	defer body.Close()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") && strings.TrimSpace(strings.TrimPrefix(line, "event:")) == "change" {
			select {
			case signals <- struct{}{}:
			default:
			}
		}
	}

	return scanner.Err()
}
