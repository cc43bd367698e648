package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drover-io/drover/pkg/api"
	"github.com/drover-io/drover/pkg/log"
)

type errStub string

func TestFlowID(t *testing.T) {
	attr := log.FlowID(api.FlowID("flow-123"))
	assertAttrEqual(t, attr, "flow_id", "flow-123")
}

func TestAgentID(t *testing.T) {
	attr := log.AgentID(api.AgentID("agent-abc"))
	assertAttrEqual(t, attr, "agent_id", "agent-abc")
}

func TestStatus(t *testing.T) {
	attr := log.Status(api.FlowCompleted)
	assertAttrEqual(t, attr, "status", "completed")
}

func TestError(t *testing.T) {
	attr := log.Error(nil)
	assertAttrEqual(t, attr, "error", "")

	attr = log.Error(errStub("boom"))
	assertAttrEqual(t, attr, "error", "boom")
}

func (e errStub) Error() string { return string(e) }

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
