package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogueDemande(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		d := DialogueDemande{
			Signature:       DialogueSignature,
			DeviceTimestamp: 1732982400.5,
			DialogueType:    DialogueRegular,
			AppVersion:      3,
			AppSubversion:   1,
			AppRelease:      207,
			DeviceType:      2,
			BuildTag:        [buildTagSize]byte{'p', 'r', 'o', 'd', '0', '1'},
		}
		copy(d.DeviceToken[:], "deadbeefdeadbeef")
		copy(d.ProfileToken[:], "feedfacefeedface")

		buf := d.Marshal()
		assert.Len(t, buf, DemandeSize)

		got, err := UnmarshalDemande(buf)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	})

	t.Run("RejectsWrongSignature", func(t *testing.T) {
		d := DialogueDemande{Signature: 0x1}
		_, err := UnmarshalDemande(d.Marshal())
		assert.Error(t, err)
	})

	t.Run("RejectsWrongSize", func(t *testing.T) {
		_, err := UnmarshalDemande(make([]byte, DemandeSize+1))
		assert.Error(t, err)
	})
}

func TestToken(t *testing.T) {
	t.Run("ZeroTokenIsZero", func(t *testing.T) {
		var tok Token
		assert.True(t, tok.IsZero())
	})

	t.Run("NonZeroTokenIsNotZero", func(t *testing.T) {
		var tok Token
		tok[0] = 1
		assert.False(t, tok.IsZero())
	})
}

func TestDialogueVerdict(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		v := DialogueVerdict{
			Signature:   DialogueSignature,
			VerdictCode: VerdictNewSession,
		}
		copy(v.SessionToken[:], "0123456789abcdef")

		buf := v.Marshal()
		assert.Len(t, buf, VerdictSize)

		got, err := UnmarshalVerdict(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	})

	t.Run("RejectsWrongSize", func(t *testing.T) {
		_, err := UnmarshalVerdict(make([]byte, VerdictSize-1))
		assert.Error(t, err)
	})
}
