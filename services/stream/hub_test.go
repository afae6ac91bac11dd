package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stockwatch/services/quotes"
)

const testReadTimeout = 5 * time.Second

// newQuoteProvider fakes the upstream quote API with fixed prices
func newQuoteProvider(t *testing.T, priceMap map[string]float64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v7/finance/quote") {
			http.NotFound(w, r)
			return
		}
		var results []string
		for _, symbol := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			if price, ok := priceMap[symbol]; ok {
				results = append(results,
					fmt.Sprintf(`{"symbol":%q,"regularMarketPrice":%v,"regularMarketTime":1700000000}`, symbol, price))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"quoteResponse":{"result":[%s],"error":null}}`, strings.Join(results, ","))
	}))
	t.Cleanup(server.Close)
	return server
}

// newStreamServer runs a hub with a fast poll interval behind a live server
func newStreamServer(t *testing.T, priceMap map[string]float64) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := newQuoteProvider(t, priceMap)
	hub := NewHub(quotes.NewClient(provider.URL), 25*time.Millisecond)
	hub.Run()
	t.Cleanup(hub.Stop)

	router := gin.New()
	router.GET("/ws/prices", hub.ServeWS)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, server
}

func dialStream(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/prices" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readQuotesFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(testReadTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}

	var message Message
	if err := json.Unmarshal(payload, &message); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	return message
}

func TestHubBroadcastsSubscribedQuotes(t *testing.T) {
	_, server := newStreamServer(t, map[string]float64{"AAPL": 189.5})
	conn := dialStream(t, server, "?symbols=aapl")

	message := readQuotesFrame(t, conn)
	if message.Type != "quotes" {
		t.Errorf("expected frame type quotes, got %q", message.Type)
	}
	if len(message.Data) != 1 || message.Data[0].Symbol != "AAPL" || message.Data[0].Price != 189.5 {
		t.Errorf("unexpected frame data: %+v", message.Data)
	}
}

func TestHubFansOutToMultipleClients(t *testing.T) {
	_, server := newStreamServer(t, map[string]float64{"AAPL": 189.5, "MSFT": 410})
	aaplConn := dialStream(t, server, "?symbols=AAPL")
	msftConn := dialStream(t, server, "?symbols=MSFT")

	// Each client only receives the symbols it subscribed to
	for _, tt := range []struct {
		conn   *websocket.Conn
		symbol string
	}{
		{aaplConn, "AAPL"},
		{msftConn, "MSFT"},
	} {
		message := readQuotesFrame(t, tt.conn)
		if len(message.Data) != 1 || message.Data[0].Symbol != tt.symbol {
			t.Errorf("expected only %s, got %+v", tt.symbol, message.Data)
		}
	}
}

func TestHubSubscribeMessageAddsSymbols(t *testing.T) {
	_, server := newStreamServer(t, map[string]float64{"AAPL": 189.5})
	conn := dialStream(t, server, "")

	if err := conn.WriteJSON(map[string][]string{"subscribe": {"aapl"}}); err != nil {
		t.Fatalf("failed to send subscribe message: %v", err)
	}

	message := readQuotesFrame(t, conn)
	if len(message.Data) != 1 || message.Data[0].Symbol != "AAPL" {
		t.Errorf("expected AAPL after subscribing, got %+v", message.Data)
	}
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub, server := newStreamServer(t, map[string]float64{"AAPL": 189.5})
	conn := dialStream(t, server, "?symbols=AAPL")

	// Wait for the client to be registered and served
	readQuotesFrame(t, conn)

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(testReadTimeout))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
