// Command client is a terminal client for the game server. It keeps a
// local replica of the game in sync over the websocket protocol, prints
// the game log as it happens, and forwards JSON client messages typed on
// stdin to the server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/game"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

var (
	addr     = flag.String("addr", "localhost:8080", "server address")
	gameID   = flag.String("game", "", "game id to join")
	userID   = flag.String("user", "", "user id to join as")
	password = flag.String("password", "", "admin password (optional)")
)

func main() {
	flag.Parse()
	if *gameID == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: client -game <id> -user <id> [-addr host:port] [-password ...]")
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	q := u.Query()
	q.Set("game", *gameID)
	q.Set("user", *userID)
	if *password != "" {
		q.Set("password", *password)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("failed to connect", zap.String("url", u.String()), zap.Error(err))
	}
	defer conn.Close()
	logger.Info("connected", zap.String("game", *gameID), zap.String("user", *userID))

	// Forward stdin lines to the server as raw client messages.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			if !json.Valid(line) {
				fmt.Fprintln(os.Stderr, "not valid JSON, ignored")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		}
	}()

	var replica *game.EntireGame
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("connection closed", zap.Error(err))
			return
		}
		var msg message.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("undecodable server message", zap.Error(err))
			continue
		}

		switch {
		case msg.Type == message.ServerGameStateChange && stateType(msg.State) == "entire-game":
			// Initial snapshot or a forced resync: rebuild from scratch.
			replica, err = game.ClientGameFromSnapshot(msg.State, logger)
			if err != nil {
				logger.Fatal("unusable snapshot", zap.Error(err))
			}
			fmt.Printf("== joined game %s, round %d ==\n", replica.ID, replica.Ingame.Game().Round)
		case replica == nil:
			// Nothing to apply onto yet; the snapshot is on its way.
		default:
			if err := replica.ApplyServerMessage(&msg); err != nil {
				logger.Warn("replica out of sync, requesting resync", zap.Error(err))
				resync, _ := json.Marshal(map[string]string{"type": "resync"})
				if err := conn.WriteMessage(websocket.TextMessage, resync); err != nil {
					return
				}
				continue
			}
			if msg.Type == message.ServerGameLog && msg.Log != nil {
				printLog(msg.Log)
			}
		}
	}
}

func stateType(state json.RawMessage) string {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(state, &header); err != nil {
		return ""
	}
	return header.Type
}

func printLog(entry *gamelog.Entry) {
	data, _ := json.Marshal(entry.Data)
	fmt.Printf("[%s] %s %s\n", entry.Time.Format("15:04:05"), entry.Type, data)
}
