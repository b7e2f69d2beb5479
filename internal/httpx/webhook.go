package httpx

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"net/http"

	"github.com/zsmoke/pickup-service/internal/messaging"
)

// SMSWebhook handles POST /webhooks/sms, the provider's inbound-message
// callback (form-encoded From/Body/MessageSid).
//
// It must ALWAYS answer 200 with a well-formed TwiML reply — a 5xx here
// triggers provider retry storms — so every internal failure collapses to
// the fallback "please call us" message.
func (h *Handler) SMSWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(r.Context(), "sms webhook panic", "panic", rec)
			writeTwiML(w, messaging.ReplyFallback)
		}
	}()

	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "sms webhook bad form", "error", err)
		writeTwiML(w, messaging.ReplyFallback)
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	messageSid := r.PostFormValue("MessageSid")

	reply, err := h.protocol.HandleInbound(r.Context(), from, body, messageSid)
	if err != nil {
		slog.ErrorContext(r.Context(), "sms webhook failed", "from", from, "error", err)
	}
	if reply == "" {
		reply = messaging.ReplyFallback
	}
	writeTwiML(w, reply)
}

func writeTwiML(w http.ResponseWriter, message string) {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<Response><Message>")
	_ = xml.EscapeText(&b, []byte(message))
	b.WriteString("</Message></Response>")

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Bytes())
}
