package solana

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Connection states
	stateDisconnected = "disconnected"
	stateConnecting   = "connecting"
	stateConnected    = "connected"

	// Reconnect settings
	maxReconnectAttempts = 10
	reconnectDelay       = 5 * time.Second
)

// BalanceCallback receives the deposit wallet's new lamport balance whenever
// the subscribed account changes.
type BalanceCallback func(address string, lamports uint64)

// depositConnection is one WebSocket subscription on a deposit wallet.
type depositConnection struct {
	address  string
	conn     *websocket.Conn
	status   string
	stopCh   chan struct{}
	callback BalanceCallback
	mu       sync.RWMutex
}

// DepositMonitor subscribes to deposit wallet accounts over the Solana
// WebSocket endpoint while their launches are accepting contributions. The
// observed balance changes pre-warm confirmation checks; registration still
// verifies each funding transfer independently.
type DepositMonitor struct {
	connections sync.Map // map[string]*depositConnection
	wsEndpoint  string
}

// NewDepositMonitor builds a monitor from SOLANA_WS_URL.
func NewDepositMonitor() (*DepositMonitor, error) {
	wsEndpoint := os.Getenv("SOLANA_WS_URL")
	if wsEndpoint == "" {
		return nil, fmt.Errorf("SOLANA_WS_URL environment variable is not set")
	}
	return &DepositMonitor{wsEndpoint: wsEndpoint}, nil
}

// StartMonitoring opens a subscription for the deposit address. Starting an
// already-monitored address is a no-op.
func (m *DepositMonitor) StartMonitoring(address string, cb BalanceCallback) error {
	if _, exists := m.connections.Load(address); exists {
		return nil
	}

	dc := &depositConnection{
		address:  address,
		status:   stateDisconnected,
		stopCh:   make(chan struct{}),
		callback: cb,
	}
	m.connections.Store(address, dc)

	go m.run(dc)
	return nil
}

// StopMonitoring closes the subscription for the deposit address.
func (m *DepositMonitor) StopMonitoring(address string) error {
	v, exists := m.connections.LoadAndDelete(address)
	if !exists {
		return fmt.Errorf("address %s is not being monitored", address)
	}

	dc := v.(*depositConnection)
	close(dc.stopCh)

	dc.mu.Lock()
	if dc.conn != nil {
		dc.conn.Close()
	}
	dc.mu.Unlock()

	log.Infof("Stopped monitoring deposit wallet %s", address)
	return nil
}

// run keeps the subscription alive, reconnecting on failure until stopped or
// the attempt budget runs out.
func (m *DepositMonitor) run(dc *depositConnection) {
	attempts := 0
	for {
		select {
		case <-dc.stopCh:
			return
		default:
		}

		if err := m.connectAndListen(dc); err != nil {
			attempts++
			if attempts >= maxReconnectAttempts {
				log.Errorf("Giving up on deposit wallet %s after %d reconnect attempts: %v",
					dc.address, attempts, err)
				m.connections.Delete(dc.address)
				return
			}
			log.Warnf("Deposit monitor for %s disconnected (attempt %d/%d): %v",
				dc.address, attempts, maxReconnectAttempts, err)

			select {
			case <-dc.stopCh:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		// Clean listen exit means we were stopped.
		return
	}
}

// accountNotification is the subset of the accountSubscribe notification the
// monitor cares about.
type accountNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Lamports uint64 `json:"lamports"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (m *DepositMonitor) connectAndListen(dc *depositConnection) error {
	dc.mu.Lock()
	dc.status = stateConnecting
	dc.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(m.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	dc.mu.Lock()
	dc.conn = conn
	dc.status = stateConnected
	dc.mu.Unlock()

	subscribe := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "accountSubscribe",
		"params": []interface{}{
			dc.address,
			map[string]interface{}{"encoding": "base64", "commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	log.Infof("Monitoring deposit wallet %s", dc.address)

	for {
		select {
		case <-dc.stopCh:
			conn.Close()
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			select {
			case <-dc.stopCh:
				return nil
			default:
				return fmt.Errorf("read failed: %w", err)
			}
		}

		var note accountNotification
		if err := json.Unmarshal(raw, &note); err != nil {
			log.Debugf("Skipping unparseable ws message for %s: %v", dc.address, err)
			continue
		}
		if note.Method != "accountNotification" {
			continue
		}

		lamports := note.Params.Result.Value.Lamports
		log.WithFields(log.Fields{
			"address":  dc.address,
			"lamports": lamports,
		}).Info("Deposit wallet balance changed")

		if dc.callback != nil {
			dc.callback(dc.address, lamports)
		}
	}
}
