package toolloop_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/tool"
	"github.com/tsharp/agent-runtime/toolloop"
)

func TestCanonicalKey_KeyOrderIndependent(t *testing.T) {
	a := toolloop.CanonicalKey("search", `{"query":"nothing","limit":5}`)
	b := toolloop.CanonicalKey("search", `{"limit":5,"query":"nothing"}`)
	assert.Equal(t, a, b)
}

func TestCanonicalKey_DifferentNameDiffers(t *testing.T) {
	a := toolloop.CanonicalKey("search", `{"query":"x"}`)
	b := toolloop.CanonicalKey("lookup", `{"query":"x"}`)
	assert.NotEqual(t, a, b)
}

func TestDetector_CheckForLoop_FirstCallIsNew(t *testing.T) {
	d := toolloop.NewDetector()
	_, found := d.CheckForLoop("search", `{"query":"nothing"}`)
	assert.False(t, found)
}

func TestDetector_RecordThenDetectDuplicate(t *testing.T) {
	d := toolloop.NewDetector()
	first := tool.Result{Output: json.RawMessage(`{"hits":0}`), Status: tool.StatusSuccessNoData}
	d.Record("search", `{"query":"nothing"}`, first)

	prior, found := d.CheckForLoop("search", `{"query":"nothing"}`)
	require.True(t, found)
	assert.Equal(t, first, prior)
}

func TestDetector_Record_FirstResultWinsOnRepeatedRecord(t *testing.T) {
	d := toolloop.NewDetector()
	first := tool.Result{Output: json.RawMessage(`{"hits":0}`), Status: tool.StatusSuccessNoData}
	second := tool.Result{Output: json.RawMessage(`{"hits":99}`), Status: tool.StatusSuccess}

	d.Record("search", `{"query":"nothing"}`, first)
	d.Record("search", `{"query":"nothing"}`, second)

	prior, found := d.CheckForLoop("search", `{"query":"nothing"}`)
	require.True(t, found)
	assert.Equal(t, first, prior)
}

func TestDetector_Suppression_DefaultTemplateMentionsToolAndResult(t *testing.T) {
	d := toolloop.NewDetector()
	prior := tool.Result{Output: json.RawMessage(`{"hits":0}`)}
	msg := d.Suppression("search", prior)
	assert.Contains(t, msg, "search")
	assert.Contains(t, msg, `"hits":0`)
}

func TestDetector_Suppression_CustomTemplate(t *testing.T) {
	d := toolloop.NewDetector()
	d.SuppressionTemplate = func(name string, prior tool.Result) string {
		return "custom:" + name
	}
	assert.Equal(t, "custom:search", d.Suppression("search", tool.Result{}))
}
