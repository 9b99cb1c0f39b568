package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mushycosmas/kariakooshop/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustSilence(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// fakeChat is an in-memory store.ChatStore for hub tests.
type fakeChat struct {
	mu         sync.Mutex
	convs      map[int64]*store.Conversation
	msgs       map[int64][]*store.Message
	nextConvID int64
	nextMsgID  int64
	failAppend bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		convs: make(map[int64]*store.Conversation),
		msgs:  make(map[int64][]*store.Message),
	}
}

func (f *fakeChat) addConversation(listingID, buyerID, sellerID int64) *store.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextConvID++
	conv := &store.Conversation{
		ID:        f.nextConvID,
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
	}
	f.convs[conv.ID] = conv
	return conv
}

func (f *fakeChat) FindOrCreateConversation(_ context.Context, listingID, buyerID, sellerID int64) (*store.Conversation, error) {
	f.mu.Lock()
	for _, conv := range f.convs {
		if conv.ListingID == listingID && conv.BuyerID == buyerID && conv.SellerID == sellerID {
			f.mu.Unlock()
			return conv, nil
		}
	}
	f.mu.Unlock()
	return f.addConversation(listingID, buyerID, sellerID), nil
}

func (f *fakeChat) GetConversationByID(_ context.Context, id int64) (*store.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return conv, nil
}

func (f *fakeChat) ListConversationsForUser(_ context.Context, _ int64) ([]*store.ConversationView, error) {
	return nil, nil
}

func (f *fakeChat) AppendMessage(_ context.Context, msg *store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return context.DeadlineExceeded
	}
	if _, ok := f.convs[msg.ConversationID]; !ok {
		return store.ErrNotFound
	}
	f.nextMsgID++
	msg.ID = f.nextMsgID
	stored := *msg
	f.msgs[msg.ConversationID] = append(f.msgs[msg.ConversationID], &stored)
	return nil
}

func (f *fakeChat) ListMessages(_ context.Context, conversationID int64, _ int, _ *int64) ([]*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*store.Message(nil), f.msgs[conversationID]...), nil
}
