package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagPII_EmailWithRuneOffsets(t *testing.T) {
	segments := []Segment{{ProcessedText: "Kontakta mig på namn@example.com"}}

	FlagPII(segments)

	require.True(t, segments[0].HasPII)
	require.Len(t, segments[0].PIIFlags, 1)

	flag := segments[0].PIIFlags[0]
	assert.Equal(t, PIIEmail, flag.Type)
	assert.Equal(t, "namn@example.com", flag.Text)
	assert.Equal(t, 16, flag.StartChar)
	assert.Equal(t, 32, flag.EndChar)

	runes := []rune(segments[0].ProcessedText)
	assert.Equal(t, flag.Text, string(runes[flag.StartChar:flag.EndChar]))
}

func TestFlagPII_Personnummer(t *testing.T) {
	segments := []Segment{{Text: "mitt personnummer är 19850712-1234"}}

	FlagPII(segments)

	require.True(t, segments[0].HasPII)
	require.Len(t, segments[0].PIIFlags, 1)
	assert.Equal(t, PIIPersonnummer, segments[0].PIIFlags[0].Type)
	assert.Equal(t, "19850712-1234", segments[0].PIIFlags[0].Text)
}

func TestFlagPII_SwedishPhoneNumber(t *testing.T) {
	segments := []Segment{{Text: "ring mig på 070-123 45 67 imorgon"}}

	FlagPII(segments)

	require.True(t, segments[0].HasPII)
	assert.Equal(t, PIITelefon, segments[0].PIIFlags[0].Type)
}

func TestFlagPII_Profanity(t *testing.T) {
	segments := []Segment{{Text: "vilket helvete det blev"}}

	FlagPII(segments)

	require.True(t, segments[0].HasPII)
	assert.Equal(t, PIIProfanity, segments[0].PIIFlags[0].Type)
	assert.Equal(t, "helvete", segments[0].PIIFlags[0].Text)
}

func TestFlagPII_PrefersProcessedText(t *testing.T) {
	segments := []Segment{{
		Text:          "rå text utan något känsligt",
		ProcessedText: "Nå mig på namn@example.com",
	}}

	FlagPII(segments)

	require.Len(t, segments[0].PIIFlags, 1)
	assert.Equal(t, "namn@example.com", segments[0].PIIFlags[0].Text)
}

func TestFlagPII_CleanSegment(t *testing.T) {
	segments := []Segment{{Text: "en helt vanlig mening om vädret"}}

	FlagPII(segments)

	assert.False(t, segments[0].HasPII)
	assert.Empty(t, segments[0].PIIFlags)
}
