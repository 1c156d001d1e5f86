package handler

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
)

// setSSEHeaders prepares the response for a Server-Sent Events stream
func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// sendSSE writes one Server-Sent Event and flushes it
func sendSSE(c *gin.Context, event string, data any) error {
	var err error
	if data != nil {
		jsonData, merr := json.Marshal(data)
		if merr != nil {
			_, err = fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		} else {
			_, err = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
		}
	} else {
		_, err = fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
	if err != nil {
		return err
	}
	c.Writer.Flush()
	return c.Request.Context().Err()
}
