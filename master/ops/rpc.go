package ops

import (
	"context"
	"time"

	"github.com/rangedb/htcore/comm"
	"github.com/rangedb/htcore/corelib"
)

// RPC command codes the master issues to range servers. Real command framing
// is an out-of-scope external collaborator (spec §1); these are the
// identifiers this core's Dispatcher fakes route on in tests.
const (
	rpcLoadRange      int32 = 1
	rpcDropTable      int32 = 2
	rpcAlterTable     int32 = 3
	rpcSuspendMaint   int32 = 4
	rpcResumeMaint    int32 = 5
)

var nextRPCID uint32

// sendAndWait sends payload to addr under a fresh request id, waiting up to
// defaultRPCTimeout for the reply (spec §6 RPC events / §5 wait_for_completion).
func sendAndWait(ctx *Context, addr string, command int32, payload []byte) ([]byte, error) {
	nextRPCID++
	h := comm.Header{Command: command, ID: nextRPCID, TimeoutMs: uint32(defaultRPCTimeout.Milliseconds())}
	pending, err := ctx.Dispatcher.Send(context.Background(), addr, h, payload)
	if err != nil {
		return nil, corelib.Wrap(corelib.External, "dispatch rpc", err)
	}
	reply, ok, err := pending.WaitForCompletion(ctx.Now().Add(defaultRPCTimeout))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, corelib.New(corelib.External, "rpc timeout to "+addr)
	}
	return reply, nil
}

const defaultRPCTimeout = 10 * time.Second
