package stompcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maleck13/stompy"
	"github.com/maleck13/stompy/stompspec"
)

func TestValidateConnectedAcceptsMissingVersion(t *testing.T) {
	f := stompy.NewFrame(stompspec.CONNECTED, []stompy.HeaderEntry{{Name: stompspec.HeaderSession, Value: "s1"}}, nil)
	assert.NoError(t, Connected(f))
}

func TestValidateConnectedRejectsUnknownVersion(t *testing.T) {
	f := stompy.NewFrame(stompspec.CONNECTED, []stompy.HeaderEntry{{Name: stompspec.HeaderVersion, Value: "9.9"}}, nil)
	assert.Error(t, Connected(f))
}

func TestValidateConnectedRejectsWrongCommand(t *testing.T) {
	f := stompy.NewFrame(stompspec.ERROR, nil, nil)
	assert.Error(t, Connected(f))
}

func TestValidateMessageRequiresMessageIDAndDestination(t *testing.T) {
	f := stompy.NewFrame(stompspec.MESSAGE, []stompy.HeaderEntry{{Name: stompspec.HeaderMessageID, Value: "m1"}}, nil)
	err := Message(stompspec.VERSION_1_0, f)
	assert.Error(t, err, "destination is missing")
}

func TestValidateMessageRequiresSubscriptionUnder11(t *testing.T) {
	f := stompy.NewFrame(stompspec.MESSAGE, []stompy.HeaderEntry{
		{Name: stompspec.HeaderMessageID, Value: "m1"},
		{Name: stompspec.HeaderDestination, Value: "/q"},
	}, nil)
	assert.Error(t, Message(stompspec.VERSION_1_1, f))
	assert.NoError(t, Message(stompspec.VERSION_1_0, f), "subscription is optional under 1.0")
}

func TestValidateMessageAcceptsCompleteFrame(t *testing.T) {
	f := stompy.NewFrame(stompspec.MESSAGE, []stompy.HeaderEntry{
		{Name: stompspec.HeaderMessageID, Value: "m1"},
		{Name: stompspec.HeaderDestination, Value: "/q"},
		{Name: stompspec.HeaderSubscription, Value: "sub-1"},
	}, []byte("payload"))
	assert.NoError(t, Message(stompspec.VERSION_1_1, f))
}

func TestValidateReceiptRequiresReceiptID(t *testing.T) {
	missing := stompy.NewFrame(stompspec.RECEIPT, nil, nil)
	assert.Error(t, Receipt(missing))

	present := stompy.NewFrame(stompspec.RECEIPT, []stompy.HeaderEntry{{Name: stompspec.HeaderReceiptID, Value: "r1"}}, nil)
	assert.NoError(t, Receipt(present))
}

func TestValidateErrorAcceptsAnyHeaders(t *testing.T) {
	f := stompy.NewFrame(stompspec.ERROR, []stompy.HeaderEntry{{Name: stompspec.HeaderMessage, Value: "boom"}}, []byte("details"))
	assert.NoError(t, Error(f))
}

func TestValidateErrorRejectsWrongCommand(t *testing.T) {
	f := stompy.NewFrame(stompspec.RECEIPT, []stompy.HeaderEntry{{Name: stompspec.HeaderReceiptID, Value: "r1"}}, nil)
	assert.Error(t, Error(f))
}
