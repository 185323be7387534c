package listview

import (
	"context"
	"strings"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/service"
)

type storeClient interface {
	List(ctx context.Context) ([]models.Bookmark, error)
	Create(ctx context.Context, title, rawURL string) error
	Delete(ctx context.Context, bookmarkID string) error
	SignOut(ctx context.Context) error
}

// State is a point-in-time copy of the view's observable state.
type State struct {
	Bookmarks    []models.Bookmark
	Loading      bool
	Saving       bool
	DeletingID   string
	ErrorMessage string
	Title        string
	URL          string
}

// View owns the in-memory bookmark list and coordinates local mutations
// with feed-triggered reloads. The original design runs on a single-threaded
// event loop; here one mutex serializes all state mutation instead. User
// mutations and feed reloads both funnel through replaceList, so the list is
// only ever replaced wholesale, never partially patched.
type View struct {
	mu     sync.Mutex
	client storeClient

	bookmarks  []models.Bookmark
	title      string
	url        string
	loading    bool
	saving     bool
	deletingID string
	errMsg     string

	closed     bool
	cancelFeed context.CancelFunc
	watchDone  chan struct{}
}

// NewView creates a View over the given store client. Call Load for the
// initial fetch and Watch to attach a change feed.
func NewView(client storeClient) *View {
	return &View{
		client: client,
	}
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	bookmarks := make([]models.Bookmark, len(v.bookmarks))
	copy(bookmarks, v.bookmarks)

	return State{
		Bookmarks:    bookmarks,
		Loading:      v.loading,
		Saving:       v.saving,
		DeletingID:   v.deletingID,
		ErrorMessage: v.errMsg,
		Title:        v.title,
		URL:          v.url,
	}
}

// SetInputs stores the form input values.
func (v *View) SetInputs(title, url string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}

	v.title = title
	v.url = url
}

// Load fetches the full list and replaces local state with the result.
// On failure the previous list is left untouched and the error message slot
// is set. Feed-triggered reloads go through the same path, so invoking Load
// twice without an intervening mutation yields identical state.
func (v *View) Load(ctx context.Context) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.loading = true
	v.errMsg = ""
	v.mu.Unlock()

	bookmarks, err := v.client.List(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}

	if err != nil {
		v.errMsg = err.Error()
	} else {
		v.replaceList(bookmarks)
	}
	v.loading = false
}

// Add creates a bookmark from the current inputs. Empty or whitespace-only
// title or URL is a silent no-op. The list is not mutated optimistically: it
// only reflects the new bookmark after the full reload that follows a
// successful create. Only one create may be in flight at a time; a second
// Add while one is pending is a no-op, mirroring a submit control disabled
// while saving.
func (v *View) Add(ctx context.Context) {
	v.mu.Lock()
	if v.closed || v.saving {
		v.mu.Unlock()
		return
	}
	v.errMsg = ""

	title := strings.TrimSpace(v.title)
	url := service.NormalizeURL(v.url)
	if title == "" || url == "" {
		v.mu.Unlock()
		return
	}

	v.saving = true
	v.mu.Unlock()

	err := v.client.Create(ctx, title, url)

	if err != nil {
		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return
		}
		v.errMsg = err.Error()
		v.saving = false
		v.mu.Unlock()
		return
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.title = ""
	v.url = ""
	v.mu.Unlock()

	v.Load(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.saving = false
}

// Delete removes the bookmark locally before the backend call resolves.
// A failed delete is not rolled back surgically: the forced reload restores
// server truth. Only one delete may be in flight at a time; a second Delete
// while one is pending is a no-op.
func (v *View) Delete(ctx context.Context, bookmarkID string) {
	v.mu.Lock()
	if v.closed || v.deletingID != "" {
		v.mu.Unlock()
		return
	}
	v.errMsg = ""
	v.deletingID = bookmarkID

	// Optimistic removal.
	v.replaceList(funk.Filter(v.bookmarks, func(bookmark models.Bookmark) bool {
		return bookmark.ID != bookmarkID
	}).([]models.Bookmark))
	v.mu.Unlock()

	err := v.client.Delete(ctx, bookmarkID)

	if err != nil {
		// Forced reload restores server truth; the delete error is written
		// afterwards so the reload's error-slot reset cannot swallow it.
		v.Load(ctx)

		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return
		}
		v.errMsg = err.Error()
		v.mu.Unlock()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.deletingID = ""
}

// Watch attaches a change feed: every signal triggers a full reload. The
// reload replaces the whole list but never touches the saving or deleting
// flags owned by still-in-flight operations. Watch returns immediately; the
// subscription ends when the view is closed.
func (v *View) Watch(subscriber *FeedSubscriber) {
	feedCtx, cancel := context.WithCancel(context.Background())

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		cancel()
		return
	}
	v.cancelFeed = cancel
	done := make(chan struct{})
	v.watchDone = done
	v.mu.Unlock()

	signals := subscriber.Subscribe(feedCtx)

	go func() {
		defer close(done)
		for range signals {
			v.Load(feedCtx)
		}
	}()
}

// WatchSignals is Watch for a raw signal channel; tests and alternative feed
// transports use it directly.
func (v *View) WatchSignals(signals <-chan struct{}) {
	done := make(chan struct{})

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.watchDone = done
	v.mu.Unlock()

	go func() {
		defer close(done)
		for range signals {
			v.Load(context.Background())
		}
	}()
}

// SignOut terminates the server-side session and resets the view to its
// zero state, the equivalent of the browser's hard navigation to /login.
func (v *View) SignOut(ctx context.Context) error {
	err := v.client.SignOut(ctx)

	v.Close()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.bookmarks = nil
	v.title = ""
	v.url = ""
	v.loading = false
	v.saving = false
	v.deletingID = ""
	v.errMsg = ""

	return err
}

// Close releases the feed subscription and marks the view disposed.
// In-flight fetches are not cancelled; their late results are discarded by
// the closed guard instead of being written into a disposed view.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	cancel := v.cancelFeed
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// replaceList swaps the whole list; callers must hold the mutex.
func (v *View) replaceList(bookmarks []models.Bookmark) {
	v.bookmarks = bookmarks
}
