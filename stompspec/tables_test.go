package stompspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientCommandAllowedGatesNackByVersion(t *testing.T) {
	assert.False(t, ClientCommandAllowed(VERSION_1_0, NACK))
	assert.True(t, ClientCommandAllowed(VERSION_1_1, NACK))
}

func TestClientCommandAllowedCommonVerbsBothVersions(t *testing.T) {
	for _, v := range []Version{VERSION_1_0, VERSION_1_1} {
		assert.True(t, ClientCommandAllowed(v, CONNECT))
		assert.True(t, ClientCommandAllowed(v, SEND))
		assert.True(t, ClientCommandAllowed(v, DISCONNECT))
	}
}

func TestServerCommandAllowed(t *testing.T) {
	assert.True(t, ServerCommandAllowed(MESSAGE))
	assert.True(t, ServerCommandAllowed(CONNECTED))
	assert.False(t, ServerCommandAllowed(SEND), "SEND is client-originated only")
}

func TestRequiredHeaders(t *testing.T) {
	assert.Equal(t, []string{HeaderMessageID, HeaderDestination}, RequiredHeaders(MESSAGE))
	assert.Nil(t, RequiredHeaders(CONNECTED))
	assert.Equal(t, []string{HeaderReceiptID}, RequiredHeaders(RECEIPT))
}

func TestBodyAllowed(t *testing.T) {
	assert.True(t, BodyAllowed(SEND))
	assert.True(t, BodyAllowed(MESSAGE))
	assert.True(t, BodyAllowed(ERROR))
	assert.False(t, BodyAllowed(ACK))
	assert.False(t, BodyAllowed(SUBSCRIBE))
}

func TestEscapedCharactersOnlyDefinedForOneOne(t *testing.T) {
	assert.Nil(t, EscapedCharacters(VERSION_1_0))
	table := EscapedCharacters(VERSION_1_1)
	assert.Equal(t, byte('n'), table['\n'])
	assert.Equal(t, byte('c'), table[':'])
	assert.Equal(t, byte('\\'), table['\\'])
}

func TestEscapingSupported(t *testing.T) {
	assert.False(t, EscapingSupported(VERSION_1_0))
	assert.True(t, EscapingSupported(VERSION_1_1))
}
