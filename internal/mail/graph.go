package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphClient reads messages from a Microsoft Graph mailbox using
// client-credentials auth.
type GraphClient struct {
	httpClient *http.Client
	baseURL    string
	mailbox    string
}

func NewGraphClient(ctx context.Context, tenantID, clientID, clientSecret, mailbox string) *GraphClient {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return &GraphClient{
		httpClient: cc.Client(ctx),
		baseURL:    defaultGraphBaseURL,
		mailbox:    mailbox,
	}
}

// SetBaseURL overrides the Graph endpoint, used by tests.
func (g *GraphClient) SetBaseURL(u string) {
	g.baseURL = u
}

// SetHTTPClient replaces the authenticated client, used by tests.
func (g *GraphClient) SetHTTPClient(c *http.Client) {
	g.httpClient = c
}

type graphMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Subject        string `json:"subject"`
	From           struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	ToRecipients []struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"toRecipients"`
	ReceivedDateTime time.Time `json:"receivedDateTime"`
	Body             struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

type graphListResponse struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// FetchMessages retrieves up to limit messages from the mailbox, newest first.
// folderName selects a named mail folder; empty means the default inbox.
func (g *GraphClient) FetchMessages(ctx context.Context, folderName string, limit int) ([]Email, error) {
	base := fmt.Sprintf("%s/users/%s", g.baseURL, g.mailbox)

	endpoint := base + "/messages"
	if folderName != "" {
		folderID, err := g.findFolderID(ctx, base, folderName)
		if err != nil {
			return nil, err
		}
		endpoint = fmt.Sprintf("%s/mailFolders/%s/messages", base, folderID)
	}

	q := url.Values{}
	q.Set("$top", fmt.Sprintf("%d", limit))
	q.Set("$orderby", "receivedDateTime desc")
	q.Set("$select", "id,conversationId,subject,from,toRecipients,receivedDateTime,body")

	var list graphListResponse
	if err := g.get(ctx, endpoint+"?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	emails := make([]Email, 0, len(list.Value))
	for _, m := range list.Value {
		to := ""
		if len(m.ToRecipients) > 0 {
			to = m.ToRecipients[0].EmailAddress.Address
		}
		body := m.Body.Content
		if m.Body.ContentType == "html" {
			body = CleanBody(body)
		}
		emails = append(emails, Email{
			ID:       m.ID,
			ThreadID: m.ConversationID,
			From:     m.From.EmailAddress.Address,
			To:       to,
			Subject:  m.Subject,
			Body:     body,
			SendTime: m.ReceivedDateTime,
		})
	}
	return emails, nil
}

func (g *GraphClient) findFolderID(ctx context.Context, base, folderName string) (string, error) {
	var folders struct {
		Value []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"value"`
	}
	if err := g.get(ctx, base+"/mailFolders", &folders); err != nil {
		return "", fmt.Errorf("list folders: %w", err)
	}
	for _, f := range folders.Value {
		if f.DisplayName == folderName {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("mail folder %q not found", folderName)
}

func (g *GraphClient) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
