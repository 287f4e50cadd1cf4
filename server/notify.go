package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pupscribe/orderform/pkg"
)

// Notifier owns the outbound channels: WhatsApp templates through Plivo,
// transactional email through Resend and job reports through a Slack
// incoming webhook. Channels with missing credentials are skipped with a
// warning instead of failing the caller.
type Notifier struct {
	cfg    pkg.Config
	http   *http.Client
	logger *zap.SugaredLogger

	PlivoBaseURL    string
	ResendBaseURL   string
	SlackWebhookURL string
}

func NewNotifier(cfg pkg.Config, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{
		cfg:             cfg,
		http:            &http.Client{Timeout: 10 * time.Second},
		logger:          logger,
		PlivoBaseURL:    "https://api.plivo.com/v1",
		ResendBaseURL:   "https://api.resend.com",
		SlackWebhookURL: cfg.SlackWebhookURL,
	}
}

func cleanPhone(raw string) string {
	var b strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

type whatsappComponent struct {
	Type       string              `json:"type"`
	SubType    string              `json:"sub_type,omitempty"`
	Index      string              `json:"index,omitempty"`
	Parameters []map[string]string `json:"parameters"`
}

// SendWhatsApp sends a templated WhatsApp message. bodyParams fill the
// template body in order; a non-empty buttonURL adds a dynamic URL button.
func (n *Notifier) SendWhatsApp(to, templateName, language string, bodyParams []string, buttonURL string) error {
	if n.cfg.PlivoAuthID == "" || n.cfg.PlivoAuthToken == "" {
		n.logger.Warnf("Plivo not configured, skipping WhatsApp to %s", to)
		return nil
	}

	phone := cleanPhone(to)
	if phone == "" {
		return fmt.Errorf("invalid phone number after cleaning: %q", to)
	}

	components := []whatsappComponent{}
	if len(bodyParams) > 0 {
		params := make([]map[string]string, 0, len(bodyParams))
		for _, p := range bodyParams {
			params = append(params, map[string]string{"type": "text", "text": p})
		}
		components = append(components, whatsappComponent{Type: "body", Parameters: params})
	}
	if buttonURL != "" {
		components = append(components, whatsappComponent{
			Type:       "button",
			SubType:    "url",
			Index:      "0",
			Parameters: []map[string]string{{"type": "text", "text": buttonURL}},
		})
	}

	payload := map[string]any{
		"type": "whatsapp",
		"src":  n.cfg.PlivoFromNumber,
		"dst":  "+91" + phone,
		"template": map[string]any{
			"name":       templateName,
			"language":   language,
			"components": components,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/Account/%s/Message/", n.PlivoBaseURL, n.cfg.PlivoAuthID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth(n.cfg.PlivoAuthID, n.cfg.PlivoAuthToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("plivo returned %d", resp.StatusCode)
	}
	return nil
}

// SendResetEmail sends the password-reset email through Resend.
func (n *Notifier) SendResetEmail(to, resetLink string) error {
	if n.cfg.ResendAPIKey == "" {
		n.logger.Warnf("Resend not configured, skipping reset email to %s", to)
		return nil
	}

	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #333;">Password Reset Request</h2>
			<p>You requested a password reset for your Order Form account.</p>
			<div style="text-align: center; margin: 30px 0;">
				<a href="%s"
				   style="background-color: #007bff; color: white; padding: 12px 30px;
						  text-decoration: none; border-radius: 5px; display: inline-block;">
					Reset Your Password
				</a>
			</div>
			<p style="color: #666; font-size: 14px;">
				If you did not request this reset, please ignore this email.
			</p>
			<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
			<p style="color: #999; font-size: 12px;">
				Thanks,<br>The Pupscribe Team
			</p>
		</div>`, resetLink)

	payload := map[string]any{
		"from":    n.cfg.ResetEmailSender,
		"to":      []string{to},
		"subject": "Password Reset Request",
		"html":    html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, n.ResendBaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.ResendAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("resend returned %d", resp.StatusCode)
	}
	return nil
}

// SendSlackReport posts a job summary to the configured Slack webhook.
func (n *Notifier) SendSlackReport(title string, report *pkg.SyncReport, jobErr error) {
	if n.SlackWebhookURL == "" {
		n.logger.Warnf("SLACK_URL not configured, skipping notification")
		return
	}

	status := ":white_check_mark: SUCCESS"
	if jobErr != nil {
		status = ":x: FAILED"
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type":  "plain_text",
				"text":  fmt.Sprintf("%s - %s", title, status),
				"emoji": true,
			},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Time:* %s\n*Job:* %s",
					time.Now().UTC().Format("2006-01-02 15:04:05 UTC"), title),
			},
		},
	}

	if jobErr != nil {
		msg := jobErr.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Error:* ```%s```", msg)},
		})
	} else if report != nil {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Items Processed:* %d\n*New Records:* %d\n*Duration:* %.1fs\n*Pages Checked:* %d",
					report.Processed, report.Inserted, report.Duration, report.Pages),
			},
		})
	}

	body, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		return
	}

	resp, err := n.http.Post(n.SlackWebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Errorf("Error sending Slack notification: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Errorf("Slack notification failed: %d", resp.StatusCode)
	}
}
