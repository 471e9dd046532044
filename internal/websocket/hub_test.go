package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	hub := NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func(_ *gin.Context, token string) error {
			if token != "good" {
				return errors.New("bad token")
			}
			return nil
		})
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
}

func TestServeWsRejectsBadToken(t *testing.T) {
	_, srv := newTestServer(t)

	_, resp, err := gorilla.DefaultDialer.Dial(wsURL(srv, "bad"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gorilla.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublishReachesClient(t *testing.T) {
	hub, srv := newTestServer(t)

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(srv, "good"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	id := uuid.New()
	hub.Publish(Event{Entity: "service", Action: "create", IDs: []uuid.UUID{id}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"entity":"service","action":"create","ids":["`+id.String()+`"]}`, string(msg))
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := NewHub(log)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(Event{Entity: "blog", Action: "delete"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no running hub")
	}
}
