package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/model"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/messaging"
	"github.com/jwalitptl/notify-api/pkg/messaging/memory"
)

type fakeRepo struct {
	listFn        func(recipientID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error)
	getFn         func(id uuid.UUID) (*model.Notification, error)
	markReadFn    func(id, recipientID uuid.UUID) (model.MarkResult, error)
	markAllReadFn func(recipientID uuid.UUID) ([]*model.Notification, error)
	countUnreadFn func(recipientID uuid.UUID) (int64, error)
}

func (f *fakeRepo) Create(ctx context.Context, n *model.Notification) error {
	return errors.New("not implemented")
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return f.getFn(id)
}

func (f *fakeRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
	return f.listFn(recipientID, opts)
}

func (f *fakeRepo) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (model.MarkResult, error) {
	return f.markReadFn(id, recipientID)
}

func (f *fakeRepo) MarkAllRead(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	return f.markAllReadFn(recipientID)
}

func (f *fakeRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return f.countUnreadFn(recipientID)
}

func (f *fakeRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, errors.New("not implemented")
}

func newTestService(repo *fakeRepo) Service {
	return NewService(repo, memory.NewBroker(), zerolog.Nop())
}

func notifications(recipientID uuid.UUID, n int) []*model.Notification {
	base := time.Now().UTC()
	out := make([]*model.Notification, n)
	for i := range out {
		out[i] = &model.Notification{
			ID:          uuid.New(),
			RecipientID: recipientID,
			Message:     "Ticket 'X' has been updated",
			Type:        model.NotificationTypeTicketUpdated,
			CreatedAt:   base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

// subscribeRecipient opens a second client's view of the live channel.
func subscribeRecipient(t *testing.T, broker *memory.Broker, recipientID uuid.UUID) <-chan []byte {
	t.Helper()
	ch, err := broker.Subscribe(context.Background(), messaging.RecipientChannel(recipientID))
	require.NoError(t, err)
	return ch
}

func receivePush(t *testing.T, ch <-chan []byte) model.Notification {
	t.Helper()
	select {
	case payload := <-ch:
		var n model.Notification
		require.NoError(t, json.Unmarshal(payload, &n))
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live push")
		return model.Notification{}
	}
}

func TestListEmitsCursorOnFullPage(t *testing.T) {
	recipient := uuid.New()
	rows := notifications(recipient, 10)
	repo := &fakeRepo{
		listFn: func(id uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
			assert.Equal(t, 10, opts.NormalizedLimit())
			return rows, nil
		},
	}

	svc := newTestService(repo)
	result, err := svc.List(context.Background(), recipient, ListParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 10)
	require.NotEmpty(t, result.Cursor)

	cursor, err := model.ParseCursor(result.Cursor)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, last.ID, cursor.ID)
	assert.True(t, last.CreatedAt.Equal(cursor.CreatedAt))
}

func TestListNoCursorOnPartialPage(t *testing.T) {
	recipient := uuid.New()
	repo := &fakeRepo{
		listFn: func(id uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
			return notifications(recipient, 3), nil
		},
	}

	svc := newTestService(repo)
	result, err := svc.List(context.Background(), recipient, ListParams{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 3)
	assert.Empty(t, result.Cursor)
}

func TestListPassesCursorThrough(t *testing.T) {
	recipient := uuid.New()
	position := model.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}

	var got *model.Cursor
	repo := &fakeRepo{
		listFn: func(id uuid.UUID, opts model.ListOptions) ([]*model.Notification, error) {
			got = opts.Cursor
			return nil, nil
		},
	}

	svc := newTestService(repo)
	_, err := svc.List(context.Background(), recipient, ListParams{Cursor: position.Encode()})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, position.ID, got.ID)
}

func TestListRejectsInvalidCursor(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	_, err := svc.List(context.Background(), uuid.New(), ListParams{Cursor: "not-a-cursor"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestMarkReadIdempotent(t *testing.T) {
	repo := &fakeRepo{
		markReadFn: func(id, recipientID uuid.UUID) (model.MarkResult, error) {
			// Row exists but was already read.
			return model.MarkResult{Found: true, Updated: false}, nil
		},
	}

	svc := newTestService(repo)
	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.NoError(t, err)
}

func TestMarkReadNotFound(t *testing.T) {
	repo := &fakeRepo{
		markReadFn: func(id, recipientID uuid.UUID) (model.MarkResult, error) {
			return model.MarkResult{Found: false}, nil
		},
	}

	svc := newTestService(repo)
	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMarkReadPushesTransitionToLiveChannel(t *testing.T) {
	recipient := uuid.New()
	row := notifications(recipient, 1)[0]
	row.IsRead = true

	repo := &fakeRepo{
		markReadFn: func(id, recipientID uuid.UUID) (model.MarkResult, error) {
			return model.MarkResult{Found: true, Updated: true}, nil
		},
		getFn: func(id uuid.UUID) (*model.Notification, error) {
			return row, nil
		},
	}

	broker := memory.NewBroker()
	svc := NewService(repo, broker, zerolog.Nop())
	ch := subscribeRecipient(t, broker, recipient)

	require.NoError(t, svc.MarkRead(context.Background(), row.ID, recipient))

	// A second connected client sees the flip without waiting for backfill.
	got := receivePush(t, ch)
	assert.Equal(t, row.ID, got.ID)
	assert.True(t, got.IsRead)
}

func TestMarkReadNoPushWhenAlreadyRead(t *testing.T) {
	recipient := uuid.New()
	repo := &fakeRepo{
		markReadFn: func(id, recipientID uuid.UUID) (model.MarkResult, error) {
			return model.MarkResult{Found: true, Updated: false}, nil
		},
	}

	broker := memory.NewBroker()
	svc := NewService(repo, broker, zerolog.Nop())
	ch := subscribeRecipient(t, broker, recipient)

	require.NoError(t, svc.MarkRead(context.Background(), uuid.New(), recipient))

	select {
	case payload := <-ch:
		t.Fatalf("unexpected push for a no-op mark: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMarkReadSucceedsWhenRowLoadFails(t *testing.T) {
	repo := &fakeRepo{
		markReadFn: func(id, recipientID uuid.UUID) (model.MarkResult, error) {
			return model.MarkResult{Found: true, Updated: true}, nil
		},
		getFn: func(id uuid.UUID) (*model.Notification, error) {
			return nil, errors.New("connection reset")
		},
	}

	// The mark has committed; a failed live push never unwinds it.
	svc := newTestService(repo)
	assert.NoError(t, svc.MarkRead(context.Background(), uuid.New(), uuid.New()))
}

func TestMarkAllReadReturnsCountAndPushesEachRow(t *testing.T) {
	recipient := uuid.New()
	flipped := notifications(recipient, 3)
	for _, n := range flipped {
		n.IsRead = true
	}

	repo := &fakeRepo{
		markAllReadFn: func(recipientID uuid.UUID) ([]*model.Notification, error) {
			return flipped, nil
		},
	}

	broker := memory.NewBroker()
	svc := NewService(repo, broker, zerolog.Nop())
	ch := subscribeRecipient(t, broker, recipient)

	count, err := svc.MarkAllRead(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	pushedIDs := make(map[uuid.UUID]bool)
	for range flipped {
		got := receivePush(t, ch)
		assert.True(t, got.IsRead)
		pushedIDs[got.ID] = true
	}
	for _, n := range flipped {
		assert.True(t, pushedIDs[n.ID], "row %s not pushed", n.ID)
	}
}

func TestMarkAllReadNothingUnread(t *testing.T) {
	repo := &fakeRepo{
		markAllReadFn: func(recipientID uuid.UUID) ([]*model.Notification, error) {
			return nil, nil
		},
	}

	svc := newTestService(repo)
	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUnreadCount(t *testing.T) {
	repo := &fakeRepo{
		countUnreadFn: func(recipientID uuid.UUID) (int64, error) {
			return 4, nil
		},
	}

	svc := newTestService(repo)
	count, err := svc.UnreadCount(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestNilRecipientRejected(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.List(context.Background(), uuid.Nil, ListParams{})
	assert.Error(t, err)

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.Nil)
	assert.Error(t, err)

	_, err = svc.MarkAllRead(context.Background(), uuid.Nil)
	assert.Error(t, err)

	_, err = svc.UnreadCount(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
