// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package source pulls workplace activity out of external systems. The
// Microsoft 365 connector fetches calendar events and sent mail over the
// Graph API and emits raw activities for the ingestion pipeline.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/tallyline/autotime/internal/config"
	"github.com/tallyline/autotime/internal/models"
)

// DefaultGraphBaseURL is the production Graph API endpoint; tests override it.
const DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

const pageSize = 100

// Clients builds one authenticated HTTP client per tenant. Tokens refresh
// themselves via the client-credentials flow.
func Clients(ctx context.Context, tenants []config.TenantConfig) map[string]*http.Client {
	clients := make(map[string]*http.Client, len(tenants))
	for _, tenant := range tenants {
		if tenant.Provider != "m365" {
			slog.Warn("skipping tenant with unsupported provider",
				"tenant", tenant.Alias, "provider", tenant.Provider)
			continue
		}
		creds := &clientcredentials.Config{
			ClientID:     tenant.ClientID,
			ClientSecret: tenant.ClientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant.TenantID),
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		}
		clients[tenant.Alias] = creds.Client(ctx)
	}
	return clients
}

// Fetcher pulls a mailbox's recent calendar events and sent messages.
type Fetcher struct {
	clients      map[string]*http.Client
	graphBaseURL string
}

// NewFetcher creates a Graph activity fetcher over per-tenant clients.
func NewFetcher(clients map[string]*http.Client, graphBaseURL string) *Fetcher {
	if graphBaseURL == "" {
		graphBaseURL = DefaultGraphBaseURL
	}
	return &Fetcher{clients: clients, graphBaseURL: graphBaseURL}
}

// FetchActivities returns the mailbox's calendar events and sent messages
// between since and now as raw activities, ready for ingestion.
func (f *Fetcher) FetchActivities(ctx context.Context, tenantAlias, mailbox string, since time.Time) ([]models.RawActivity, error) {
	client, ok := f.clients[tenantAlias]
	if !ok {
		return nil, fmt.Errorf("no Graph client for tenant %q", tenantAlias)
	}

	events, err := f.fetchCalendar(ctx, client, mailbox, since)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar for %s: %w", mailbox, err)
	}
	messages, err := f.fetchSentMail(ctx, client, mailbox, since)
	if err != nil {
		return nil, fmt.Errorf("fetch sent mail for %s: %w", mailbox, err)
	}

	activities := make([]models.RawActivity, 0, len(events)+len(messages))
	activities = append(activities, events...)
	activities = append(activities, messages...)

	slog.Info("source sync fetched activities",
		"tenant", tenantAlias,
		"mailbox", mailbox,
		"calendar", len(events),
		"email", len(messages),
	)
	return activities, nil
}

// fetchCalendar pages through /calendarView for the window.
func (f *Fetcher) fetchCalendar(ctx context.Context, client *http.Client, mailbox string, since time.Time) ([]models.RawActivity, error) {
	now := time.Now().UTC()
	params := url.Values{}
	params.Set("startDateTime", since.UTC().Format(time.RFC3339))
	params.Set("endDateTime", now.Format(time.RFC3339))
	params.Set("$select", "id,subject,bodyPreview,start,end,attendees,organizer")
	params.Set("$top", fmt.Sprint(pageSize))

	first := fmt.Sprintf("%s/users/%s/calendarView?%s", f.graphBaseURL, url.PathEscape(mailbox), params.Encode())

	var activities []models.RawActivity
	err := f.pageAll(ctx, client, first, func(raw json.RawMessage) error {
		var ev graphEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return fmt.Errorf("decode calendar event: %w", err)
		}
		activities = append(activities, eventToActivity(ev))
		return nil
	})
	return activities, err
}

// fetchSentMail pages through the Sent Items folder since the cutoff.
func (f *Fetcher) fetchSentMail(ctx context.Context, client *http.Client, mailbox string, since time.Time) ([]models.RawActivity, error) {
	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("sentDateTime ge %s", since.UTC().Format(time.RFC3339)))
	params.Set("$select", "id,subject,bodyPreview,sentDateTime,toRecipients,ccRecipients")
	params.Set("$orderby", "sentDateTime desc")
	params.Set("$top", fmt.Sprint(pageSize))

	first := fmt.Sprintf("%s/users/%s/mailFolders/sentitems/messages?%s",
		f.graphBaseURL, url.PathEscape(mailbox), params.Encode())

	var activities []models.RawActivity
	err := f.pageAll(ctx, client, first, func(raw json.RawMessage) error {
		var msg graphMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		activities = append(activities, messageToActivity(msg))
		return nil
	})
	return activities, err
}

// graphPage is the generic paged OData envelope.
type graphPage struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// pageAll walks an OData collection following @odata.nextLink until exhausted.
func (f *Fetcher) pageAll(ctx context.Context, client *http.Client, firstURL string, visit func(json.RawMessage) error) error {
	for nextURL := firstURL; nextURL != ""; {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, nextURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Prefer", "outlook.body-content-type=\"text\"")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("graph request: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("graph API returned HTTP %d", resp.StatusCode)
		}

		var page graphPage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return fmt.Errorf("decode page: %w", err)
		}
		resp.Body.Close()

		for _, item := range page.Value {
			if err := visit(item); err != nil {
				return err
			}
		}
		nextURL = page.NextLink
	}
	return nil
}
