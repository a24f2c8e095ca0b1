package graph

import (
	"context"
	"fmt"

	"cryptoscan/internal/scan"
)

// Provider fetches one content category from the API.
type Provider struct {
	client      *Client
	name        string
	path        string
	defaultType string
}

// NewEmail returns a provider for mailbox messages.
func NewEmail(c *Client) *Provider {
	return &Provider{client: c, name: "Exchange Online", path: "/messages", defaultType: "Email"}
}

// NewSharePoint returns a provider for site documents.
func NewSharePoint(c *Client) *Provider {
	return &Provider{client: c, name: "SharePoint", path: "/sites/content", defaultType: "Document"}
}

// NewOneDrive returns a provider for drive files.
func NewOneDrive(c *Client) *Provider {
	return &Provider{client: c, name: "OneDrive", path: "/drive/items", defaultType: "File"}
}

// NewTeams returns a provider for chat messages.
func NewTeams(c *Client) *Provider {
	return &Provider{client: c, name: "Teams", path: "/chats/messages", defaultType: "Chat Message"}
}

// NewCloudStorage returns a provider for attached cloud storage objects.
func NewCloudStorage(c *Client) *Provider {
	return &Provider{client: c, name: "Cloud Storage", path: "/storage/objects", defaultType: "Storage Object"}
}

// Name implements scan.Provider.
func (p *Provider) Name() string {
	return p.name
}

// Items implements scan.Provider.
func (p *Provider) Items(ctx context.Context, req scan.Request) ([]scan.Item, error) {
	raw, err := p.client.fetchItems(ctx, p.path, req.MaxItems, detailFor(req.Depth))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s items: %w", p.name, err)
	}

	items := make([]scan.Item, 0, len(raw))
	for _, r := range raw {
		if r.Content == "" {
			continue
		}
		itemType := r.ItemType
		if itemType == "" {
			itemType = p.defaultType
		}
		items = append(items, scan.Item{
			Source:   p.name,
			ItemType: itemType,
			Content:  r.Content,
		})
	}
	return items, nil
}

// detailFor maps a scan depth to the API's content-detail parameter.
func detailFor(depth string) string {
	switch depth {
	case scan.DepthLight:
		return "preview"
	case scan.DepthDeep:
		return "full"
	default:
		return "body"
	}
}
