package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// notify-client prints the notifications streamed to a player, e.g. the
// VIP_ACTIVATED message after a VIP pass purchase.
func main() {
	url := flag.String("url", "ws://localhost:8888/api/v1/store/ws", "notification stream url")
	initData := flag.String("init-data", os.Getenv("TELEGRAM_INIT_DATA"), "telegram mini app init data")
	flag.Parse()

	if *initData == "" {
		log.Fatal("init data is required, pass -init-data or set TELEGRAM_INIT_DATA")
	}

	header := http.Header{}
	header.Add("Authorization", "Telegram "+*initData)

	conn, _, err := websocket.DefaultDialer.Dial(*url, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	messageQueue := make(chan []byte)

	go func() {
		defer close(messageQueue)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			messageQueue <- p
		}
	}()

	for {
		select {
		case message, ok := <-messageQueue:
			if !ok {
				return
			}

			var out json.RawMessage
			if err := json.Unmarshal(message, &out); err != nil {
				log.Printf("Received:\n%s\n", message)
				continue
			}
			pretty, _ := json.MarshalIndent(out, "", "  ")
			log.Printf("Received:\n%s\n", pretty)

		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
