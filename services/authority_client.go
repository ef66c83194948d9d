package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nft-campaign-system/models"
)

// ExternalAuthorityClient is what reconciliation and import need from the
// minting authority. The HTTP implementation below talks to the real
// service; tests substitute a stub.
type ExternalAuthorityClient interface {
	FetchSnapshot(ctx context.Context, projectRef string) (models.AuthoritySnapshot, error)
	FetchUnassignedTokens(ctx context.Context, projectRef string) ([]UnassignedToken, error)
}

// UnassignedToken is a token the authority knows about but we have not yet
// imported into any campaign.
type UnassignedToken struct {
	ExternalTokenID string `json:"external_token_id"`
	DisplayNumber   int    `json:"display_number"`
	Name            string `json:"name"`
	ImageURL        string `json:"image_url"`
}

type AuthorityHTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAuthorityHTTPClient(baseURL, apiKey string) *AuthorityHTTPClient {
	return &AuthorityHTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

const (
	authorityPageSize = 50
	authorityMaxPages = 100
)

// authorityNft is the authority's wire shape for one token.
type authorityNft struct {
	AssetName     string `json:"asset_name"`
	DisplayNumber int    `json:"display_number"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	State         string `json:"state"` // free | reserved | sold
	SoldTo        string `json:"sold_to"`
	ReservedBy    string `json:"reserved_by"`
}

// FetchSnapshot pulls every token state the authority holds for the project,
// paging until a short page. The whole read must succeed; a failure mid-way
// returns an error and no snapshot.
func (c *AuthorityHTTPClient) FetchSnapshot(ctx context.Context, projectRef string) (models.AuthoritySnapshot, error) {
	snapshot := make(models.AuthoritySnapshot)
	for _, state := range []string{"free", "reserved", "sold"} {
		nfts, err := c.fetchAllPages(ctx, projectRef, state)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching %s tokens: %v", models.ErrExternalUnavailable, state, err)
		}
		for _, n := range nfts {
			claimant := n.SoldTo
			if claimant == "" {
				claimant = n.ReservedBy
			}
			snapshot[n.AssetName] = models.TokenState{
				Status:   mapAuthorityState(n.State),
				Claimant: claimant,
			}
		}
	}
	return snapshot, nil
}

// FetchUnassignedTokens lists the authority's free tokens, for import into a
// newly created campaign.
func (c *AuthorityHTTPClient) FetchUnassignedTokens(ctx context.Context, projectRef string) ([]UnassignedToken, error) {
	nfts, err := c.fetchAllPages(ctx, projectRef, "free")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching unassigned tokens: %v", models.ErrExternalUnavailable, err)
	}
	tokens := make([]UnassignedToken, 0, len(nfts))
	for _, n := range nfts {
		tokens = append(tokens, UnassignedToken{
			ExternalTokenID: n.AssetName,
			DisplayNumber:   n.DisplayNumber,
			Name:            n.Name,
			ImageURL:        n.Image,
		})
	}
	return tokens, nil
}

func (c *AuthorityHTTPClient) fetchAllPages(ctx context.Context, projectRef, state string) ([]authorityNft, error) {
	var all []authorityNft
	for page := 1; page <= authorityMaxPages; page++ {
		batch, err := c.fetchPage(ctx, projectRef, state, page)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < authorityPageSize {
			break
		}
	}
	return all, nil
}

func (c *AuthorityHTTPClient) fetchPage(ctx context.Context, projectRef, state string, page int) ([]authorityNft, error) {
	url := fmt.Sprintf("%s/v2/GetNfts/%s/%s/%d/%d", c.BaseURL, projectRef, state, authorityPageSize, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("authority returned %d: %s", resp.StatusCode, string(body))
	}

	var nfts []authorityNft
	if err := json.NewDecoder(resp.Body).Decode(&nfts); err != nil {
		return nil, fmt.Errorf("decoding authority response: %v", err)
	}
	return nfts, nil
}

func mapAuthorityState(state string) models.TokenStatus {
	switch state {
	case "reserved":
		return models.TokenStatusReserved
	case "sold":
		return models.TokenStatusSold
	default: // "free"
		return models.TokenStatusAvailable
	}
}
