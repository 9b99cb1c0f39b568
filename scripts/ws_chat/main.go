// Command ws_chat is a terminal smoke client for the chat server. It
// logs in over HTTP, dials the WebSocket with the issued token, joins a
// conversation, and relays stdin lines as messages.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mushycosmas/kariakooshop/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	apiAddr := flag.String("api", "http://localhost:8080", "HTTP API base URL")
	wsAddr := flag.String("ws", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "", "username")
	password := flag.String("password", "", "password")
	conversation := flag.Int64("conversation", 0, "conversation id to join")
	flag.Parse()

	if *user == "" || *password == "" || *conversation <= 0 {
		return errors.New("-user, -password and -conversation are required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
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

	fmt.Printf("Connected to %s as %s in conversation %d\n", *wsAddr, *user, *conversation)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *conversation)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
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

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
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

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Type == proto.OutboundTypeError && outbound.Error != nil {
			fmt.Printf("error [%s]: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventNameMessage:
			var evt proto.EventMessage
			if err := redecode(outbound.Data, &evt); err != nil {
				log.Printf("decode message: %v", err)
				continue
			}
			ts := time.UnixMilli(evt.SentAt).Local().Format("15:04:05")
			fmt.Printf("%s %s (%s): %s\n", ts, evt.Sender, evt.Role, evt.Text)
		case proto.EventNameHistory:
			var evt proto.EventHistory
			if err := redecode(outbound.Data, &evt); err != nil {
				log.Printf("decode history: %v", err)
				continue
			}
			for _, msg := range evt.Messages {
				ts := time.UnixMilli(msg.SentAt).Local().Format("15:04:05")
				fmt.Printf("%s %s (%s): %s\n", ts, msg.Sender, msg.Role, msg.Text)
			}
		case proto.EventNameUserJoined:
			var evt proto.EventUserJoined
			if err := redecode(outbound.Data, &evt); err != nil {
				log.Printf("decode user_joined: %v", err)
				continue
			}
			fmt.Printf("* %s joined conversation %d\n", evt.User, evt.ConversationID)
		case proto.EventNameUserLeft:
			var evt proto.EventUserLeft
			if err := redecode(outbound.Data, &evt); err != nil {
				log.Printf("decode user_left: %v", err)
				continue
			}
			fmt.Printf("* %s left conversation %d\n", evt.User, evt.ConversationID)
		default:
			fmt.Printf("event=%s data=%v\n", outbound.Event, outbound.Data)
		}
	}
}

// redecode round-trips an interface{} payload into a typed event.
func redecode(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func writeLoop(ctx context.Context, conn *websocket.Conn, conversationID int64) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.SendData{ConversationID: conversationID, Text: text})
			if err != nil {
				log.Printf("marshal send: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSend, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
