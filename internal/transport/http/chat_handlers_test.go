package http

import (
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"testing"
)

func decodeJSON(t *testing.T, resp *stdhttp.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, stdhttp.MethodPost, "/api/register", "",
		`{"username":"mama-ntilie","password":"password123","display_name":"Mama Ntilie"}`)
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, stdhttp.StatusCreated)
	}
	var authResp AuthResponse
	decodeJSON(t, resp, &authResp)
	if authResp.Token == "" {
		t.Fatal("register returned empty token")
	}

	resp = env.doJSON(t, stdhttp.MethodPost, "/api/register", "",
		`{"username":"mama-ntilie","password":"password123"}`)
	if resp.StatusCode != stdhttp.StatusConflict {
		t.Fatalf("duplicate register status = %d, want %d", resp.StatusCode, stdhttp.StatusConflict)
	}

	resp = env.doJSON(t, stdhttp.MethodPost, "/api/login", "",
		`{"username":"mama-ntilie","password":"password123"}`)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, stdhttp.StatusOK)
	}

	resp = env.doJSON(t, stdhttp.MethodPost, "/api/login", "",
		`{"username":"mama-ntilie","password":"wrong-password"}`)
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want %d", resp.StatusCode, stdhttp.StatusUnauthorized)
	}

	resp = env.doJSON(t, stdhttp.MethodPost, "/api/register", "",
		`{"username":"ab","password":"password123"}`)
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("short username status = %d, want %d", resp.StatusCode, stdhttp.StatusBadRequest)
	}
}

func TestSendMessageFirstContact(t *testing.T) {
	env := newTestEnv(t)

	sellerToken, sellerID := env.register(t, "juma", "Juma Electronics")
	buyerToken, buyerID := env.register(t, "asha", "Asha")
	listing := env.createListing(t, sellerID, "Samsung TV 42in")

	body := fmt.Sprintf(`{"listing_id":%d,"text":"Is this still available?"}`, listing.ID)
	resp := env.doJSON(t, stdhttp.MethodPost, "/api/chat/send-message", buyerToken, body)
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("send-message status = %d, want %d", resp.StatusCode, stdhttp.StatusCreated)
	}
	var first SendMessageResponse
	decodeJSON(t, resp, &first)
	if first.ConversationID == 0 {
		t.Fatal("send-message returned zero conversation_id")
	}
	if first.Message.SenderID != buyerID {
		t.Fatalf("sender_id = %d, want %d", first.Message.SenderID, buyerID)
	}
	if first.Message.Role != "buyer" {
		t.Fatalf("role = %q, want buyer", first.Message.Role)
	}
	if first.Message.SentAt == "" {
		t.Fatal("message has no sent_at")
	}

	// Second contact about the same listing lands in the same conversation.
	body = fmt.Sprintf(`{"listing_id":%d,"text":"Can you do 90k?"}`, listing.ID)
	resp = env.doJSON(t, stdhttp.MethodPost, "/api/chat/send-message", buyerToken, body)
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("second send-message status = %d, want %d", resp.StatusCode, stdhttp.StatusCreated)
	}
	var second SendMessageResponse
	decodeJSON(t, resp, &second)
	if second.ConversationID != first.ConversationID {
		t.Fatalf("conversation_id = %d, want %d", second.ConversationID, first.ConversationID)
	}

	// Sellers cannot open a conversation with themselves.
	resp = env.doJSON(t, stdhttp.MethodPost, "/api/chat/send-message", sellerToken, body)
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("own-listing status = %d, want %d", resp.StatusCode, stdhttp.StatusBadRequest)
	}

	resp = env.doJSON(t, stdhttp.MethodPost, "/api/chat/send-message", buyerToken,
		`{"listing_id":9999,"text":"hello"}`)
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("unknown listing status = %d, want %d", resp.StatusCode, stdhttp.StatusNotFound)
	}
}

func TestPostAndGetMessages(t *testing.T) {
	env := newTestEnv(t)

	_, sellerID := env.register(t, "juma", "Juma Electronics")
	buyerToken, _ := env.register(t, "asha", "Asha")
	sellerToken, err := env.auth.Login(t.Context(), "juma", "password123")
	if err != nil {
		t.Fatalf("failed to login seller: %v", err)
	}
	listing := env.createListing(t, sellerID, "Samsung TV 42in")

	body := fmt.Sprintf(`{"listing_id":%d,"text":"Is this still available?"}`, listing.ID)
	resp := env.doJSON(t, stdhttp.MethodPost, "/api/chat/send-message", buyerToken, body)
	var first SendMessageResponse
	decodeJSON(t, resp, &first)

	body = fmt.Sprintf(`{"conversation_id":%d,"text":"Yes, come by tomorrow."}`, first.ConversationID)
	resp = env.doJSON(t, stdhttp.MethodPost, "/api/chat/messages", sellerToken, body)
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("post message status = %d, want %d", resp.StatusCode, stdhttp.StatusCreated)
	}
	var reply MessageResponse
	decodeJSON(t, resp, &reply)
	if reply.Role != "seller" {
		t.Fatalf("reply role = %q, want seller", reply.Role)
	}

	path := fmt.Sprintf("/api/chat/messages?conversation_id=%d", first.ConversationID)
	resp = env.doJSON(t, stdhttp.MethodGet, path, buyerToken, "")
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("get messages status = %d, want %d", resp.StatusCode, stdhttp.StatusOK)
	}
	var history []MessageResponse
	decodeJSON(t, resp, &history)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Text != "Is this still available?" || history[1].Text != "Yes, come by tomorrow." {
		t.Fatalf("history out of order: %q then %q", history[0].Text, history[1].Text)
	}
	if history[0].Role != "buyer" || history[1].Role != "seller" {
		t.Fatalf("history roles = %q, %q", history[0].Role, history[1].Role)
	}
}

func TestGetMessagesAuthorization(t *testing.T) {
	env := newTestEnv(t)

	_, sellerID := env.register(t, "juma", "Juma Electronics")
	buyerToken, _ := env.register(t, "asha", "Asha")
	strangerToken, _ := env.register(t, "peter", "Peter")
	listing := env.createListing(t, sellerID, "Samsung TV 42in")

	body := fmt.Sprintf(`{"listing_id":%d,"text":"hello"}`, listing.ID)
	resp := env.doJSON(t, stdhttp.MethodPost, "/api/chat/send-message", buyerToken, body)
	var first SendMessageResponse
	decodeJSON(t, resp, &first)

	path := fmt.Sprintf("/api/chat/messages?conversation_id=%d", first.ConversationID)
	resp = env.doJSON(t, stdhttp.MethodGet, path, strangerToken, "")
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("stranger get status = %d, want %d", resp.StatusCode, stdhttp.StatusForbidden)
	}

	body = fmt.Sprintf(`{"conversation_id":%d,"text":"let me in"}`, first.ConversationID)
	resp = env.doJSON(t, stdhttp.MethodPost, "/api/chat/messages", strangerToken, body)
	if resp.StatusCode != stdhttp.StatusForbidden {
		t.Fatalf("stranger post status = %d, want %d", resp.StatusCode, stdhttp.StatusForbidden)
	}

	resp = env.doJSON(t, stdhttp.MethodGet, "/api/chat/messages?conversation_id=9999", buyerToken, "")
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("unknown conversation status = %d, want %d", resp.StatusCode, stdhttp.StatusNotFound)
	}

	resp = env.doJSON(t, stdhttp.MethodGet, "/api/chat/messages", buyerToken, "")
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("missing conversation_id status = %d, want %d", resp.StatusCode, stdhttp.StatusBadRequest)
	}
}

func TestListConversationsInbox(t *testing.T) {
	env := newTestEnv(t)

	sellerToken, sellerID := env.register(t, "juma", "Juma Electronics")
	buyerToken, buyerID := env.register(t, "asha", "Asha")
	strangerToken, _ := env.register(t, "peter", "Peter")
	listing := env.createListing(t, sellerID, "Samsung TV 42in")

	body := fmt.Sprintf(`{"listing_id":%d,"text":"hello"}`, listing.ID)
	resp := env.doJSON(t, stdhttp.MethodPost, "/api/chat/send-message", buyerToken, body)
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("send-message status = %d, want %d", resp.StatusCode, stdhttp.StatusCreated)
	}

	for _, token := range []string{buyerToken, sellerToken} {
		resp = env.doJSON(t, stdhttp.MethodGet, "/api/chat/conversations", token, "")
		if resp.StatusCode != stdhttp.StatusOK {
			t.Fatalf("conversations status = %d, want %d", resp.StatusCode, stdhttp.StatusOK)
		}
		var inbox []ConversationResponse
		decodeJSON(t, resp, &inbox)
		if len(inbox) != 1 {
			t.Fatalf("inbox length = %d, want 1", len(inbox))
		}
		entry := inbox[0]
		if entry.ListingName != "Samsung TV 42in" {
			t.Fatalf("listing_name = %q", entry.ListingName)
		}
		if entry.BuyerID != buyerID || entry.SellerID != sellerID {
			t.Fatalf("participants = buyer %d seller %d", entry.BuyerID, entry.SellerID)
		}
		if entry.BuyerName != "Asha" || entry.SellerName != "Juma Electronics" {
			t.Fatalf("names = %q, %q", entry.BuyerName, entry.SellerName)
		}
	}

	resp = env.doJSON(t, stdhttp.MethodGet, "/api/chat/conversations", strangerToken, "")
	var inbox []ConversationResponse
	decodeJSON(t, resp, &inbox)
	if len(inbox) != 0 {
		t.Fatalf("stranger inbox length = %d, want 0", len(inbox))
	}
}

func TestChatEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
		body   string
	}{
		{stdhttp.MethodGet, "/api/chat/conversations", ""},
		{stdhttp.MethodGet, "/api/chat/messages?conversation_id=1", ""},
		{stdhttp.MethodPost, "/api/chat/messages", `{"conversation_id":1,"text":"hi"}`},
		{stdhttp.MethodPost, "/api/chat/send-message", `{"listing_id":1,"text":"hi"}`},
	}
	for _, p := range paths {
		resp := env.doJSON(t, p.method, p.path, "", p.body)
		if resp.StatusCode != stdhttp.StatusUnauthorized {
			t.Fatalf("%s %s status = %d, want %d", p.method, p.path, resp.StatusCode, stdhttp.StatusUnauthorized)
		}

		resp = env.doJSON(t, p.method, p.path, "not-a-token", p.body)
		if resp.StatusCode != stdhttp.StatusUnauthorized {
			t.Fatalf("%s %s with bad token status = %d, want %d", p.method, p.path, resp.StatusCode, stdhttp.StatusUnauthorized)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, stdhttp.MethodGet, "/health", "", "")
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("health status = %d, want %d", resp.StatusCode, stdhttp.StatusOK)
	}
}
