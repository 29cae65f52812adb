package utils

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "filebox_flash"

// Flash categories understood by the templates.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// SetFlash queues a message for the next page. Multiple calls in one request accumulate.
func SetFlash(ctx *gin.Context, category, message string) {
	msgs := pending(ctx)
	msgs = append(msgs, FlashMessage{Category: category, Message: message})
	ctx.Set(flashCookie, msgs)
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	writeFlashCookie(ctx, base64.RawURLEncoding.EncodeToString(raw), 300)
}

// PopFlashes returns the queued messages and clears them.
func PopFlashes(ctx *gin.Context) []FlashMessage {
	msgs := pending(ctx)
	if len(msgs) > 0 {
		ctx.Set(flashCookie, []FlashMessage(nil))
		writeFlashCookie(ctx, "", -1)
	}
	return msgs
}

func pending(ctx *gin.Context) []FlashMessage {
	if v, ok := ctx.Get(flashCookie); ok {
		msgs, _ := v.([]FlashMessage)
		return msgs
	}
	raw, err := ctx.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var msgs []FlashMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

func writeFlashCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(flashCookie, value, maxAge, "/", "", false, true)
}
