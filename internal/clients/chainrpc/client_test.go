package chainrpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronocoders/indexnode/internal/common"
)

func TestGetLogs_InvalidAddressIsInputInvalid(t *testing.T) {
	// A Client with a nil *ethclient.Client is safe for this path since the
	// address validation happens before any network call.
	c := &Client{logger: common.NewSilentLogger()}

	_, err := c.GetLogs(context.Background(), "not-an-address", "Transfer(address,address,uint256)", 0, 100)
	require.Error(t, err)
	assert.Equal(t, common.KindInputInvalid, common.KindOf(err))
}
