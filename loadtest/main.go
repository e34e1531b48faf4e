// Command loadtest drives a running server with concurrent room members:
// every user joins the same channel, posts over REST, echoes over the
// websocket, and reconciles both delivery paths to verify nobody sees a
// duplicate or a missing message.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ylack/internal/ws"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	UserCount = 50 // concurrent members in the room
	MsgCount  = 20 // messages per user
)

type AuthResponse struct {
	Token    string `json:"access_token"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

type workspaceResponse struct {
	ID         string `json:"id"`
	InviteCode string `json:"inviteCode"`
}

type channelResponse struct {
	ID string `json:"id"`
}

func main() {
	log.Printf("starting load test: %d users, %d messages each", UserCount, MsgCount)

	// First user creates the workspace; everyone else joins by invite code.
	owner := authenticate("lt_user_0", "password123")
	wsID, invite, chID := createRoom(owner.Token)

	var wg sync.WaitGroup
	for i := 0; i < UserCount; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			auth := owner
			if n > 0 {
				auth = authenticate(fmt.Sprintf("lt_user_%d", n), "password123")
				joinWorkspace(auth.Token, invite)
			}
			runMember(auth, wsID, chID)
		}(i)
	}

	wg.Wait()
	log.Println("load test complete")
}

func runMember(auth AuthResponse, workspaceID, channelID string) {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", WSURL, auth.Token), nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", auth.Username, err)
		return
	}
	defer conn.Close()

	conn.WriteJSON(map[string]string{
		"event":       "join-channel",
		"workspaceId": workspaceID,
		"channelId":   channelID,
	})

	rec := ws.NewReconciler()
	done := make(chan struct{})

	// Receive loop: feed every broadcast echo through the reconciler.
	go func() {
		defer close(done)
		dups := 0
		for {
			var frame struct {
				Event    string          `json:"event"`
				Envelope ws.Envelope     `json:"envelope"`
				Message  json.RawMessage `json:"message"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				break
			}
			if frame.Event != "message-received" {
				continue
			}
			if !rec.Receive(frame.Envelope) {
				dups++
			}
		}
		log.Printf("%s reconciled %d messages (%d dropped as duplicates)", auth.Username, len(rec.IDs()), dups)
	}()

	for i := 0; i < MsgCount; i++ {
		tempID := fmt.Sprintf("temp-%s-%d", auth.Username, i)
		rec.AddOptimistic(tempID)

		conn.WriteJSON(map[string]string{
			"event":       "typing",
			"workspaceId": workspaceID,
			"channelId":   channelID,
		})

		m := submitMessage(auth.Token, workspaceID, channelID,
			fmt.Sprintf("load test message %d from %s", i, auth.Username))
		if m == nil {
			rec.Discard(tempID)
			continue
		}
		rec.Confirm(tempID, m.ID)

		// Echo over the transport so other members see the origin-marked path.
		raw, _ := json.Marshal(m)
		conn.WriteJSON(map[string]any{
			"event":       "new-message",
			"workspaceId": workspaceID,
			"channelId":   channelID,
			"message":     json.RawMessage(raw),
		})

		conn.WriteJSON(map[string]string{
			"event":       "stop-typing",
			"workspaceId": workspaceID,
			"channelId":   channelID,
		})

		// Small sleep to prevent an instant localhost bottleneck.
		time.Sleep(10 * time.Millisecond)
	}

	// Give stragglers a moment to arrive, then hang up.
	time.Sleep(2 * time.Second)
	conn.Close()
	<-done
}

type messageResponse struct {
	ID string `json:"id"`
}

func submitMessage(token, workspaceID, channelID, content string) *messageResponse {
	url := fmt.Sprintf("%s/api/workspaces/%s/channels/%s/messages", BaseURL, workspaceID, channelID)
	resp, err := doJSON("POST", url, token, map[string]string{"content": content})
	if err != nil {
		log.Printf("submit failed: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Printf("submit rejected: %s", resp.Status)
		return nil
	}
	var m messageResponse
	json.NewDecoder(resp.Body).Decode(&m)
	return &m
}

// authenticate registers (ignoring an already-exists failure) and logs in.
func authenticate(username, password string) AuthResponse {
	creds := map[string]string{"username": username, "password": password}
	if resp, err := doJSON("POST", BaseURL+"/register", "", creds); err == nil {
		resp.Body.Close()
	}

	resp, err := doJSON("POST", BaseURL+"/login", "", creds)
	if err != nil {
		log.Fatalf("login failed [%s]: %v", username, err)
	}
	defer resp.Body.Close()

	var data AuthResponse
	json.NewDecoder(resp.Body).Decode(&data)
	if data.Token == "" {
		log.Fatalf("login returned no token for %s", username)
	}
	return data
}

func createRoom(token string) (workspaceID, inviteCode, channelID string) {
	resp, err := doJSON("POST", BaseURL+"/api/workspaces", token, map[string]string{"name": "loadtest"})
	if err != nil {
		log.Fatalf("create workspace failed: %v", err)
	}
	defer resp.Body.Close()
	var w workspaceResponse
	json.NewDecoder(resp.Body).Decode(&w)

	resp2, err := doJSON("GET", fmt.Sprintf("%s/api/workspaces/%s/channels", BaseURL, w.ID), token, nil)
	if err != nil {
		log.Fatalf("list channels failed: %v", err)
	}
	defer resp2.Body.Close()
	var channels []channelResponse
	json.NewDecoder(resp2.Body).Decode(&channels)
	if len(channels) == 0 {
		log.Fatal("workspace has no channels")
	}
	return w.ID, w.InviteCode, channels[0].ID
}

func joinWorkspace(token, inviteCode string) {
	resp, err := doJSON("POST", BaseURL+"/api/workspaces/join", token, map[string]string{"inviteCode": inviteCode})
	if err != nil {
		log.Fatalf("join workspace failed: %v", err)
	}
	resp.Body.Close()
}

func doJSON(method, url, token string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}
