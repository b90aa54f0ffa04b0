package bot

import (
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

func TestResolveReplyTarget(t *testing.T) {
	i := &Ingestor{recentSenders: gocache.New(time.Minute, time.Minute)}
	i.recentSenders.SetDefault("$orig", "@sender:test")

	content := []byte(`{"m.relates_to":{"m.in_reply_to":{"event_id":"$orig"}}}`)
	assert.Equal(t, "@sender:test", i.resolveReplyTarget(content))

	// References to messages we never saw resolve to nothing.
	unknown := []byte(`{"m.relates_to":{"m.in_reply_to":{"event_id":"$gone"}}}`)
	assert.Equal(t, "", i.resolveReplyTarget(unknown))

	assert.Equal(t, "", i.resolveReplyTarget([]byte(`{"body":"plain"}`)))
	assert.Equal(t, "", i.resolveReplyTarget(nil))
}

func TestExtractRoles(t *testing.T) {
	roles := extractRoles(map[string]interface{}{
		"roles": []interface{}{"member", "verified"},
	})
	assert.Equal(t, []string{"member", "verified"}, roles)

	// Absent role data is "unknown", not "no roles".
	assert.Nil(t, extractRoles(map[string]interface{}{}))
	assert.Nil(t, extractRoles(map[string]interface{}{"roles": "not-a-list"}))

	// Present but empty is "no roles".
	assert.NotNil(t, extractRoles(map[string]interface{}{"roles": []interface{}{}}))
}
