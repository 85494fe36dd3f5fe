package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCall_NestsAndLogs(t *testing.T) {
	var mirror bytes.Buffer
	log := New(&mirror)
	ctx := WithLog(context.Background(), log)

	assert.Equal(t, -1, Depth(ctx))

	outer, lg := StartCall(ctx, "test_zome", "test_cap", "check_call")
	lg.Info("call")
	inner, lg2 := StartCall(outer, "test_zome", "test_cap", "check_hash_app_entry")
	lg2.Debug("nested")

	assert.Equal(t, 0, Depth(outer))
	assert.Equal(t, 1, Depth(inner))
	assert.NotEqual(t, CallID(outer), CallID(inner))

	lines := log.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, bytes.Count(mirror.Bytes(), []byte("\n")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "nested", rec["msg"])
	assert.Equal(t, CallID(outer), rec["parent"])
	assert.Equal(t, float64(1), rec["depth"])
	assert.Equal(t, "check_hash_app_entry", rec["fn"])
}

func TestFromContext_WithoutLogDiscards(t *testing.T) {
	lg := FromContext(context.Background())
	require.NotNil(t, lg)
	lg.Info("dropped")
	assert.Nil(t, LogFrom(context.Background()))
	assert.Equal(t, "", CallID(context.Background()))
}

func TestLog_ConcurrentWritersKeepWholeLines(t *testing.T) {
	log := New(nil)
	ctx := WithLog(context.Background(), log)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, lg := StartCall(ctx, "z", "c", fmt.Sprintf("fn%d", i))
			for j := 0; j < 20; j++ {
				lg.Info("tick", "j", j)
			}
		}(i)
	}
	wg.Wait()

	lines := log.Lines()
	require.Len(t, lines, 16*20)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), "torn line: %q", line)
	}
}

func TestWithLevel_DropsLowerRecords(t *testing.T) {
	log := New(nil, WithLevel(slog.LevelInfo))
	ctx := WithLog(context.Background(), log)

	_, lg := StartCall(ctx, "test_zome", "test_cap", "check_global")
	lg.Debug("zome debug")
	lg.Info("call")

	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"call"`)
}
