// Command ws_smoke is a one-shot check against a running server: log in,
// join a conversation, send one message, and exit once the broadcast
// echoes back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mushycosmas/kariakooshop/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	apiAddr := flag.String("api", "http://localhost:8080", "HTTP API base URL")
	wsAddr := flag.String("ws", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "", "username")
	password := flag.String("password", "", "password")
	conversation := flag.Int64("conversation", 0, "conversation id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *user == "" || *password == "" || *conversation <= 0 {
		return fmt.Errorf("-user, -password and -conversation are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := login(ctx, *apiAddr, *user, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, *wsAddr+"?token="+token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	joinPayload, err := json.Marshal(proto.JoinData{ConversationID: *conversation})
	if err != nil {
		return fmt.Errorf("marshal join: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Data: joinPayload}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	sendPayload, err := json.Marshal(proto.SendData{ConversationID: *conversation, Text: *text})
	if err != nil {
		return fmt.Errorf("marshal send: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSend, Data: sendPayload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Type == proto.OutboundTypeError && outbound.Error != nil {
			return fmt.Errorf("server error [%s]: %s", outbound.Error.Code, outbound.Error.Msg)
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}

		switch outbound.Event {
		case proto.EventNameMessage:
			var evt proto.EventMessage
			if unmarshalErr := json.Unmarshal(raw, &evt); unmarshalErr != nil {
				fmt.Printf("Raw data: %s\n", string(raw))
				return fmt.Errorf("unmarshal message: %w", unmarshalErr)
			}
			fmt.Printf("EventMessage: conversation=%d sender=%s role=%s text=%q sent_at=%d\n",
				evt.ConversationID, evt.Sender, evt.Role, evt.Text, evt.SentAt)
			return nil
		case proto.EventNameHistory:
			var evt proto.EventHistory
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("History: conversation=%d messages=%d\n", evt.ConversationID, len(evt.Messages))
			}
		case proto.EventNameUserJoined:
			var evt proto.EventUserJoined
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("Join: conversation=%d user=%s\n", evt.ConversationID, evt.User)
			}
		case proto.EventNameUserLeft:
			var evt proto.EventUserLeft
			if err := json.Unmarshal(raw, &evt); err == nil {
				fmt.Printf("Left: conversation=%d user=%s\n", evt.ConversationID, evt.User)
			}
		default:
			// keep looping for the message echo
		}
	}
}

func login(ctx context.Context, apiAddr, user, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": user,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiAddr+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var auth struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", err
	}
	return auth.Token, nil
}
