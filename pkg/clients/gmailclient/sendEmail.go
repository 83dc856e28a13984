package gmailclient

import (
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"
)

const EMAIL_INTERVAL = 3 * time.Second

// SendEmail sends an email with the specified subject and body.
// Throttles requests to respect Gmail API rate limits
func (c *Client) SendEmail(to, subject, body string) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if !c.lastSendTime.IsZero() {
		elapsed := time.Since(c.lastSendTime)
		if elapsed < EMAIL_INTERVAL {
			time.Sleep(EMAIL_INTERVAL - elapsed)
		}
	}

	headers := fmt.Sprintf("To: %s\r\nSubject: %s", to, subject)
	if c.sender != "" {
		headers = fmt.Sprintf("From: %s\r\n%s", c.sender, headers)
	}
	message := fmt.Sprintf("%s\r\n\r\n%s", headers, body)

	gmailMessage := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(message)),
	}

	_, err := c.service.Users.Messages.Send("me", gmailMessage).Do()
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()

	return nil
}
