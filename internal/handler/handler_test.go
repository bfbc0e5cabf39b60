package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/lirobabyxoxo/CapitaoCP/internal/service"
)

func TestProposalCustomIDRoundTrip(t *testing.T) {
	p := service.Proposal{ProposerID: "111", TargetID: "222"}

	got, ok := parseProposal(acceptCustomID(p), acceptPrefix)
	assert.True(t, ok)
	assert.Equal(t, p, got)

	got, ok = parseProposal(declineCustomID(p), declinePrefix)
	assert.True(t, ok)
	assert.Equal(t, p, got)
}

func TestParseProposalMalformed(t *testing.T) {
	for _, id := range []string{
		acceptPrefix,
		acceptPrefix + "111",
		acceptPrefix + "111_",
		acceptPrefix + "_222",
		acceptPrefix + "1_2_3",
	} {
		_, ok := parseProposal(id, acceptPrefix)
		assert.False(t, ok, "custom id %q should not parse", id)
	}
}

func TestApplyListAction(t *testing.T) {
	list := applyListAction(nil, "a", "add")
	list = applyListAction(list, "b", "add")
	assert.Equal(t, []string{"a", "b"}, list)

	// adding an existing entry does not duplicate it
	list = applyListAction(list, "a", "add")
	assert.Equal(t, []string{"a", "b"}, list)

	list = applyListAction(list, "a", "remove")
	assert.Equal(t, []string{"b"}, list)

	// removing an absent entry is a no-op
	list = applyListAction(list, "missing", "remove")
	assert.Equal(t, []string{"b"}, list)
}

func TestUserTag(t *testing.T) {
	assert.Equal(t, "alice", userTag(&discordgo.User{Username: "alice", Discriminator: "0"}))
	assert.Equal(t, "bob#1234", userTag(&discordgo.User{Username: "bob", Discriminator: "1234"}))
	assert.Equal(t, "unknown", userTag(nil))
}

func TestDeletionLoggable(t *testing.T) {
	assert.True(t, deletionLoggable(&discordgo.Message{
		Author: &discordgo.User{ID: "1", Username: "alice"},
	}))

	// deletions without cached content have no author to attribute,
	// which is typically our own quick-clear cleanup
	assert.False(t, deletionLoggable(nil))
	assert.False(t, deletionLoggable(&discordgo.Message{}))
	assert.False(t, deletionLoggable(&discordgo.Message{
		Author: &discordgo.User{ID: "2", Username: "bot", Bot: true},
	}))
}

func TestFilterBulkDeletable(t *testing.T) {
	now := time.Now()
	messages := []*discordgo.Message{
		{ID: "fresh", Timestamp: now.Add(-time.Hour)},
		{ID: "stale", Timestamp: now.Add(-15 * 24 * time.Hour)},
		{ID: "recent", Timestamp: now.Add(-13 * 24 * time.Hour)},
	}

	assert.Equal(t, []string{"fresh", "recent"}, filterBulkDeletable(messages, now))
	assert.Empty(t, filterBulkDeletable(nil, now))
}

func TestAvatarExtensionURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example/avatars/1/abc.jpg?size=512",
		avatarExtensionURL("https://cdn.example/avatars/1/abc.png?size=512", "jpg"))
	assert.Equal(t,
		"https://cdn.example/avatars/1/abc.png",
		avatarExtensionURL("https://cdn.example/avatars/1/abc.webp", "png"))
}

func TestRoleList(t *testing.T) {
	assert.Equal(t, "None", roleList(nil))
	assert.Equal(t, "<@&10>, <@&20>", roleList([]string{"10", "20"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("x", 50)
	got := truncate(long, 20)
	assert.LessOrEqual(t, len(got), 20)
	assert.True(t, strings.HasSuffix(got, "..."))

	// multi-byte runes are not split
	got = truncate(strings.Repeat("é", 50), 20)
	assert.LessOrEqual(t, len(got), 20)
	assert.True(t, strings.HasSuffix(got, "..."))
}
