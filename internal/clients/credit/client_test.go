package credit

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chronocoders/indexnode/internal/common"
)

func TestGetBalance_InvalidAddressIsInputInvalid(t *testing.T) {
	c := &Client{logger: common.NewSilentLogger()}
	_, err := c.GetBalance(context.Background(), "not-an-address")
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}

func TestSpendCredits_InvalidAddressIsInputInvalid(t *testing.T) {
	c := &Client{logger: common.NewSilentLogger()}
	_, err := c.SpendCredits(context.Background(), "not-an-address", big.NewInt(50), "job-cost")
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}
