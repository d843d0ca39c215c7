package alert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// WebhookTransport posts to a chat webhook URL. Webhook mode supports
// only post: no message reference is returned, so Edit and Delete
// degenerate to no-ops.
type WebhookTransport struct {
	URL    string
	client *fasthttp.Client
}

func NewWebhookTransport(url string) *WebhookTransport {
	return &WebhookTransport{URL: url, client: &fasthttp.Client{Name: "collator-sentinel"}}
}

func (w *WebhookTransport) Post(_ string, body string) (*MessageHandle, error) {
	payload, err := json.Marshal(map[string]string{"text": body})
	if err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.URL)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := w.client.DoTimeout(req, resp, 10*time.Second); err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode())
	}
	return nil, nil
}

func (w *WebhookTransport) Edit(*MessageHandle, string) error   { return nil }
func (w *WebhookTransport) Delete(*MessageHandle) error         { return nil }

// BotTransport posts via a bot-token chat API, supporting post (which
// returns a handle), edit, and delete.
type BotTransport struct {
	BaseURL string // e.g. "https://slack.com/api"
	Token   string
	client  *fasthttp.Client
}

func NewBotTransport(baseURL, token string) *BotTransport {
	return &BotTransport{BaseURL: baseURL, Token: token, client: &fasthttp.Client{Name: "collator-sentinel"}}
}

type postResponse struct {
	OK        bool   `json:"ok"`
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
	Error     string `json:"error"`
}

func (b *BotTransport) Post(channel, body string) (*MessageHandle, error) {
	resp, err := b.call("chat.postMessage", map[string]string{"channel": channel, "text": body})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("bot post failed: %s", resp.Error)
	}
	return &MessageHandle{ChannelID: resp.Channel, MessageID: resp.Timestamp}, nil
}

func (b *BotTransport) Edit(ref *MessageHandle, body string) error {
	if ref == nil {
		return nil
	}
	resp, err := b.call("chat.update", map[string]string{"channel": ref.ChannelID, "ts": ref.MessageID, "text": body})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("bot edit failed: %s", resp.Error)
	}
	return nil
}

func (b *BotTransport) Delete(ref *MessageHandle) error {
	if ref == nil {
		return nil
	}
	resp, err := b.call("chat.delete", map[string]string{"channel": ref.ChannelID, "ts": ref.MessageID})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("bot delete failed: %s", resp.Error)
	}
	return nil
}

func (b *BotTransport) call(method string, form map[string]string) (*postResponse, error) {
	payload, err := json.Marshal(form)
	if err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(b.BaseURL + "/" + method)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+b.Token)
	req.SetBody(payload)

	if err := b.client.DoTimeout(req, resp, 10*time.Second); err != nil {
		return nil, err
	}
	var out postResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
