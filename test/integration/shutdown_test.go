package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wirechat/wirechat/internal/server"
	"github.com/wirechat/wirechat/test/testhelpers"
)

func TestGracefulShutdownWithLiveClients(t *testing.T) {
	ts := startRelay(t, 50)

	alice := testhelpers.DialChat(t, ts)
	joinAs(t, alice, "alice")

	bob := testhelpers.DialChat(t, ts)
	joinAs(t, bob, "bob")

	require.NoError(t, server.GetHub().Shutdown(3*time.Second))
}

func TestShutdownWithoutClients(t *testing.T) {
	startRelay(t, 50)

	require.NoError(t, server.GetHub().Shutdown(time.Second))
}
