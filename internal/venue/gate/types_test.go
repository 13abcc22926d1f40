package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akavalov/fairwatch/internal/stream"
)

func TestNormalizeTickerBatch(t *testing.T) {
	frame := []byte(`{
		"time": 1700000000,
		"channel": "futures.tickers",
		"event": "update",
		"result": [
			{"contract": "BTC_USDT", "last": "64321.5", "mark_price": "64100.0", "volume_24h": "123456"},
			{"contract": "ABC_USDT", "last": "0.0412", "mark_price": "0.0391", "volume_24h": "not-a-number"}
		]
	}`)

	snaps := Normalizer{}.Normalize(stream.Message{Topic: TopicTickers, Payload: frame})
	require.Len(t, snaps, 2)

	assert.Equal(t, VenueName, snaps[0].Venue)
	assert.Equal(t, "BTC_USDT", snaps[0].Instrument)
	assert.Equal(t, 64321.5, snaps[0].LastPrice)
	assert.Equal(t, 64100.0, snaps[0].ReferencePrice)
	assert.Equal(t, 123456.0, snaps[0].Volume24h)
	assert.Equal(t, time.Unix(1700000000, 0), snaps[0].ObservedAt)

	// volume is non-critical and degrades to zero
	assert.Equal(t, 0.0, snaps[1].Volume24h)
	assert.Equal(t, 0.0412, snaps[1].LastPrice)
}

func TestNormalizeDropsBadEntries(t *testing.T) {
	frame := []byte(`{
		"time": 1700000000,
		"channel": "futures.tickers",
		"event": "update",
		"result": [
			{"contract": "", "last": "1", "mark_price": "1"},
			{"contract": "XYZ_USDT", "last": "oops", "mark_price": "1"},
			{"contract": "OK_USDT", "last": "2", "mark_price": "1.9"}
		]
	}`)

	snaps := Normalizer{}.Normalize(stream.Message{Payload: frame})
	require.Len(t, snaps, 1)
	assert.Equal(t, "OK_USDT", snaps[0].Instrument)
}

func TestNormalizeRejectsMalformedFrames(t *testing.T) {
	assert.Nil(t, Normalizer{}.Normalize(stream.Message{Payload: []byte(`{`)}))
	assert.Nil(t, Normalizer{}.Normalize(stream.Message{Payload: []byte(`{"result": {"not":"a list"}}`)}))
}
