package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var assets = [][2]string{
	{"SOL", "USDC"},
	{"ETH", "USDC"},
	{"SOL", "USDT"},
}

type createResponse struct {
	OrderID string `json:"orderId"`
}

type statusEvent struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// loadgen fires create-order requests at a running engine and follows each
// order's status stream until it reaches a terminal state.
func main() {
	var baseURL string
	var numOrders int
	flag.StringVar(&baseURL, "url", "http://localhost:3000", "engine base url")
	flag.IntVar(&numOrders, "orders", 10, "number of orders to submit")
	flag.Parse()

	start := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	confirmed, failed := 0, 0

	for i := 0; i < numOrders; i++ {
		pair := assets[rand.Intn(len(assets))]
		amount := float64(rand.Intn(100) + 1)

		orderID, err := createOrder(baseURL, pair[0], pair[1], amount)
		if err != nil {
			log.Printf("create order: %v", err)
			continue
		}

		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			terminal, err := followOrder(baseURL, orderID)
			if err != nil {
				log.Printf("follow order %s: %v", orderID, err)
				return
			}
			mu.Lock()
			if terminal == "confirmed" {
				confirmed++
			} else {
				failed++
			}
			mu.Unlock()
		}(orderID)
	}

	wg.Wait()
	fmt.Printf("Submitted %d orders in %s: %d confirmed, %d failed\n",
		numOrders, time.Since(start), confirmed, failed)
}

func createOrder(baseURL, assetIn, assetOut string, amountIn float64) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"assetIn":  assetIn,
		"assetOut": assetOut,
		"amountIn": amountIn,
	})
	resp, err := http.Post(baseURL+"/api/orders/execute", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var cr createResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	return cr.OrderID, nil
}

func followOrder(baseURL, orderID string) (string, error) {
	wsURL := "ws" + baseURL[len("http"):] + "/api/orders/execute?orderId=" + orderID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Minute)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return "", err
		}
		var ev statusEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return "", err
		}
		log.Printf("[order %s] %s: %s", ev.OrderID, ev.Status, ev.Message)
		if ev.Status == "confirmed" || ev.Status == "failed" {
			return ev.Status, nil
		}
	}
}
