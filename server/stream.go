package server

import (
	"ai_gallery_simulator/generator"

	"github.com/gin-gonic/gin"
)

// SSE 事件名。
const (
	eventStage = "stage"
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

type stageEvent struct {
	Operation generator.Operation `json:"operation"`
	Stage     generator.Stage     `json:"stage"`
}

type chunkEvent struct {
	Text string `json:"text"`
}

// handleSessionStream 与 handleSessionCreate 相同，但通过 SSE 推送阶段和文本增量。
// 设置校验失败时仍以普通 JSON 400 返回；开始推送后错误以 error 事件结束。
func (s *Server) handleSessionStream(c *gin.Context) {
	settings, ok := bindSettings(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// 回调都在当前 goroutine 上执行，可以直接写响应
	send := func(event string, data any) {
		c.SSEvent(event, data)
		c.Writer.Flush()
	}

	sess := s.sessions.create(settings)
	ctx, cancel := s.requestContext(c)
	defer cancel()
	ctx = generator.ContextWithStageHook(ctx, func(op generator.Operation, st generator.Stage) {
		send(eventStage, stageEvent{Operation: op, Stage: st})
	})

	_, err := sess.Generate(ctx, func(text string) {
		send(eventChunk, chunkEvent{Text: text})
	})
	if err != nil {
		_ = c.Error(err)
		_, body := classifyError(err)
		send(eventError, body)
		return
	}
	s.sessions.set(sess)
	send(eventDone, sess.Snapshot())
}
