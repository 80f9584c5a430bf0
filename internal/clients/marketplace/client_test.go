package marketplace

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chronocoders/indexnode/internal/common"
)

func TestPurchaseDataset_InvalidListingIDIsInputInvalid(t *testing.T) {
	c := &Client{logger: common.NewSilentLogger()}
	_, err := c.PurchaseDataset(context.Background(), "not-a-number")
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}

func TestGetListingDetails_InvalidListingIDIsInputInvalid(t *testing.T) {
	c := &Client{logger: common.NewSilentLogger()}
	_, err := c.GetListingDetails(context.Background(), "not-a-number")
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}

func TestSellerReputation_InvalidAddressIsInputInvalid(t *testing.T) {
	c := &Client{logger: common.NewSilentLogger()}
	_, err := c.SellerReputation(context.Background(), "not-an-address")
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}

func TestCreateListing_PriceIsPassedThrough(t *testing.T) {
	// CreateListing has no input validation short-circuit (cid/metadataURI
	// are free-form strings), so this only documents the price arg is a
	// *big.Int, matching the ABI's uint256 param.
	price := big.NewInt(1000)
	assert.Positive(t, price.Sign())
}
