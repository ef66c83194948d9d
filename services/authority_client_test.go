package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nft-campaign-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSnapshotMapsStatesAndClaimants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v2/GetNfts/"), "/")
		require.Len(t, parts, 4)
		state, page := parts[1], parts[3]

		var nfts []map[string]interface{}
		if page == "1" {
			switch state {
			case "free":
				nfts = append(nfts, map[string]interface{}{"asset_name": "T1", "state": "free"})
			case "reserved":
				nfts = append(nfts, map[string]interface{}{"asset_name": "T2", "state": "reserved", "reserved_by": "wallet-b"})
			case "sold":
				nfts = append(nfts, map[string]interface{}{"asset_name": "T3", "state": "sold", "sold_to": "wallet-c", "reserved_by": "ignored"})
			}
		}
		_ = json.NewEncoder(w).Encode(nfts)
	}))
	defer server.Close()

	client := NewAuthorityHTTPClient(server.URL, "key-1")
	snapshot, err := client.FetchSnapshot(context.Background(), "proj-1")
	require.NoError(t, err)

	assert.Equal(t, models.TokenState{Status: models.TokenStatusAvailable}, snapshot["T1"])
	assert.Equal(t, models.TokenState{Status: models.TokenStatusReserved, Claimant: "wallet-b"}, snapshot["T2"])
	assert.Equal(t, models.TokenState{Status: models.TokenStatusSold, Claimant: "wallet-c"}, snapshot["T3"])
}

func TestFetchUnassignedTokensPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v2/GetNfts/"), "/")
		require.Len(t, parts, 4)
		page := parts[3]

		var nfts []map[string]interface{}
		if page == "1" {
			// A full page forces a second request.
			for i := 1; i <= authorityPageSize; i++ {
				nfts = append(nfts, map[string]interface{}{
					"asset_name":     fmt.Sprintf("T%d", i),
					"display_number": i,
					"state":          "free",
				})
			}
		} else if page == "2" {
			nfts = append(nfts, map[string]interface{}{"asset_name": "T51", "display_number": 51, "state": "free"})
		}
		_ = json.NewEncoder(w).Encode(nfts)
	}))
	defer server.Close()

	client := NewAuthorityHTTPClient(server.URL, "key-1")
	tokens, err := client.FetchUnassignedTokens(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Len(t, tokens, authorityPageSize+1)
	assert.Equal(t, "T51", tokens[authorityPageSize].ExternalTokenID)
}

func TestFetchSnapshotServerErrorIsExternalUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewAuthorityHTTPClient(server.URL, "key-1")
	_, err := client.FetchSnapshot(context.Background(), "proj-1")
	assert.ErrorIs(t, err, models.ErrExternalUnavailable)
}
