package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rhubarbDocument = `{"metadata":{"soundFile":"message_0.wav","duration":0.5,"dialogFile":"d.txt"},"mouthCues":[{"start":0,"end":0.5,"value":"A","extra":1}],"version":2}`

func TestVisemeCueTrack_ForwardsDocumentUnchanged(t *testing.T) {
	track, err := DecodeVisemeCueTrack([]byte(rhubarbDocument))
	require.NoError(t, err)
	assert.Equal(t, 0.5, track.Metadata.Duration)
	require.Len(t, track.MouthCues, 1)
	assert.Equal(t, "A", track.MouthCues[0].Value)

	data, err := json.Marshal(ResponseMessage{Text: "hi", Lipsync: track})
	require.NoError(t, err)

	var decoded struct {
		Lipsync json.RawMessage `json:"lipsync"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.JSONEq(t, rhubarbDocument, string(decoded.Lipsync))
}

func TestVisemeCueTrack_UnmarshalKeepsDocument(t *testing.T) {
	var message ResponseMessage
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hi","lipsync":`+rhubarbDocument+`}`), &message))
	require.NotNil(t, message.Lipsync)
	assert.Equal(t, "message_0.wav", message.Lipsync.Metadata.SoundFile)

	data, err := json.Marshal(message.Lipsync)
	require.NoError(t, err)
	assert.JSONEq(t, rhubarbDocument, string(data))
}

func TestVisemeCueTrack_BuiltInCode(t *testing.T) {
	track := &VisemeCueTrack{
		Metadata:  VisemeCueMetadata{SoundFile: "a.wav", Duration: 0.1},
		MouthCues: []MouthCue{{Start: 0, End: 0.1, Value: "X"}},
	}

	data, err := json.Marshal(track)
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{"soundFile":"a.wav","duration":0.1},"mouthCues":[{"start":0,"end":0.1,"value":"X"}]}`, string(data))
}

func TestDecodeVisemeCueTrack_Invalid(t *testing.T) {
	_, err := DecodeVisemeCueTrack([]byte("{oops"))
	assert.Error(t, err)
}
