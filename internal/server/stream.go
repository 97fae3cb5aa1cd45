package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/betbot/gausscdf/pkg/logger"
)

const (
	streamWriteWait = 10 * time.Second
	streamReadLimit = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

// sameOrigin 只接受同源的浏览器连接；不带 Origin 的非浏览器客户端放行
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// streamRequest 一条流式请求，ID 原样带回
type streamRequest struct {
	ID   string `json:"id"`
	Unit string `json:"unit"`
	evalRequest
}

type streamResponse struct {
	ID     string         `json:"id"`
	Result *cdfResponse   `json:"result,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

// handleStream 在 WebSocket 上逐条求值：每收到一个 JSON 请求回一个 JSON 响应，
// 顺序与请求一致。客户端关闭或发来无法解析的消息时结束。
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写过错误响应
		logger.Debugf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)

	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("websocket read: %v", err)
			}
			return
		}

		resp := streamResponse{ID: req.ID}
		p, err := req.params(req.Unit == "decimal")
		if err == nil {
			if res, evalErr := s.evaluate(p); evalErr == nil {
				r := newCDFResponse(p, res)
				resp.Result = &r
			} else {
				err = evalErr
			}
		}
		if err != nil {
			resp.Error = &errorResponse{Error: errorKind(err), Message: err.Error()}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Debugf("websocket write: %v", err)
			return
		}
	}
}
