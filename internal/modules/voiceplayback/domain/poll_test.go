package domain

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestThreshold(t *testing.T) {
	cases := []struct {
		voters, want int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Threshold(c.voters), "voters=%d", c.voters)
	}
}

func TestVoteTally_Resolved(t *testing.T) {
	tally := VoteTally{Up: 2, Down: 0}
	won, resolved := tally.Resolved(2)
	assert.True(t, resolved)
	assert.True(t, won)

	tally = VoteTally{Up: 1, Down: 0}
	_, resolved = tally.Resolved(2)
	assert.False(t, resolved)
}

func TestTopicHash_StableAndDistinct(t *testing.T) {
	a := Topic{Description: "queue clear"}
	b := Topic{Description: "queue clear"}
	c := Topic{Description: "skip current track"}

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestTopic_VoidedBy(t *testing.T) {
	topic := Topic{Description: "clear the queue", Voids: []string{"queue-clear", "leave"}}
	assert.True(t, topic.VoidedBy("queue-clear"))
	assert.False(t, topic.VoidedBy("queue-repeat"))
}

func TestPollPalette_MixStaysInRange(t *testing.T) {
	palette := DefaultPollPalette()
	hex := palette.Mix(0.5, 0.5)
	assert.GreaterOrEqual(t, hex, 0)
	assert.LessOrEqual(t, hex, 0xFFFFFF)
}

func TestBar_TotalsThreeCharacters(t *testing.T) {
	assert.Equal(t, 3, utf8.RuneCountInString(Bar(1, 0)))
	assert.Equal(t, 3, utf8.RuneCountInString(Bar(0, 1)))
	assert.Equal(t, 3, utf8.RuneCountInString(Bar(0.33, 0.33)))
}

func TestPollRecord_MessageLink(t *testing.T) {
	record := PollRecord{ID: "abc-123", GuildID: 1, ChannelID: 2, MessageID: 3}
	assert.Equal(t, "https://discord.com/channels/1/2/3", record.MessageLink())
	assert.Equal(t, "abc-123", record.ID)
}

func TestResolution_Won(t *testing.T) {
	assert.True(t, ResolutionUnanimousWin.Won())
	assert.True(t, ResolutionSupersededWinViaDJ.Won())
	assert.False(t, ResolutionUnanimousLoss.Won())
	assert.False(t, ResolutionTimedOut.Won())
	assert.False(t, ResolutionVoided.Won())
	assert.False(t, ResolutionSupersededLossViaDJ.Won())
}
