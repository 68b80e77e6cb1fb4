package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ser := JSONSerializer{}

	req := Request{ID: "req-1", Type: ReqLimit, Side: SideBuy, Price: "100", Size: "10"}
	payload, err := ser.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(&buf, MsgRequest, payload))

	ev := Event{Sequence: 9, Type: EventMatch, Side: SideSell, Price: "100", Size: "10", MakerOrderID: 3}
	payload, err = ser.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, WriteFrame(&buf, MsgEvent, payload))

	kind, data, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgRequest, kind)
	var gotReq Request
	require.NoError(t, ser.Unmarshal(data, &gotReq))
	assert.Equal(t, req, gotReq)

	kind, data, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgEvent, kind)
	var gotEv Event
	require.NoError(t, ser.Unmarshal(data, &gotEv))
	assert.Equal(t, ev, gotEv)

	_, _, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, MsgRequest, make([]byte, MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, buf.Len())
}
