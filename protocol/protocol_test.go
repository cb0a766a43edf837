package protocol

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WatchJani/K-means/utils"
)

var codec = JSONCodec{}

func TestPayload(t *testing.T) {
	p := Payload{Start: 3, End: 9, Centroids: utils.Points{utils.NewCentroid(50.1, 8.2, 12.5, "#ABCDEF")}}

	t.Run("round trip", func(t *testing.T) {
		data, err := codec.EncodePayload(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"start":3`)
		assert.Contains(t, string(data), `"id":"Centroid"`)
		assert.NotContains(t, string(data), "\n")

		back, err := codec.DecodePayload(data)
		require.NoError(t, err)
		assert.Equal(t, p, back)
		assert.Equal(t, utils.Partition{Start: 3, End: 9}, back.Partition())
	})

	t.Run("malformed", func(t *testing.T) {
		for _, data := range []string{
			`{"start":`,
			`{"start":5,"end":2,"centroids":[{"id":"Centroid"}]}`,
			`{"start":-1,"end":2,"centroids":[{"id":"Centroid"}]}`,
			`{"start":0,"end":2,"centroids":[]}`,
		} {
			_, err := codec.DecodePayload([]byte(data))
			assert.True(t, errors.Is(err, utils.ErrMalformedPayload), data)
		}
	})
}

func TestAggregates(t *testing.T) {
	centroids := utils.Points{utils.NewCentroid(0, 0, 0, "#000001"), utils.NewCentroid(0, 0, 0, "#000002")}
	partials := []utils.PartialAggregate{
		{SumLat: 150.3, SumLon: 30.9, SumWeight: 1500, Count: 3},
		{},
	}

	data, err := codec.EncodeAggregates(partials, centroids)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count":3`)
	assert.Contains(t, string(data), `"label":"#000001"`)

	back, err := codec.DecodeAggregates(data, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, back[0].Count)
	assert.InDelta(t, 150.3, back[0].SumLat, 1e-9)
	assert.InDelta(t, 30.9, back[0].SumLon, 1e-9)
	assert.InDelta(t, 1500, back[0].SumWeight, 1e-9)
	assert.Equal(t, utils.PartialAggregate{}, back[1])

	t.Run("wrong cluster count", func(t *testing.T) {
		_, err := codec.DecodeAggregates(data, 3)
		assert.True(t, errors.Is(err, utils.ErrMalformedPayload))
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := codec.DecodeAggregates([]byte(`{"centroids":[{"lat":1,"count":-1}]}`), 1)
		assert.True(t, errors.Is(err, utils.ErrMalformedPayload))
	})
}

func TestPoints(t *testing.T) {
	data, err := codec.EncodePoints(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	points := utils.Points{{Id: "a", Weight: 1, Lat: 2, Lon: 3, Label: "#FFFFFF"}}
	data, err = codec.EncodePoints(points)
	require.NoError(t, err)
	back, err := codec.DecodePoints(data)
	require.NoError(t, err)
	assert.Equal(t, points, back)

	_, err = codec.DecodePoints([]byte("{"))
	assert.Error(t, err)
}

func TestLine(t *testing.T) {
	t.Run("requests", func(t *testing.T) {
		assert.Equal(t, "NUMBER 42\n", FormatNumber(42))
		assert.Equal(t, "TERMINATE\n", FormatRequest(Terminate, nil))

		cmd, data := ParseRequest("kmeans {\"start\":0}\r\n")
		assert.Equal(t, KMeans, cmd)
		assert.Equal(t, `{"start":0}`, data)

		cmd, data = ParseRequest("TERMINATE\n")
		assert.Equal(t, Terminate, cmd)
		assert.Empty(t, data)
	})

	t.Run("number", func(t *testing.T) {
		n, err := ParseNumber(" 17 ")
		require.NoError(t, err)
		assert.Equal(t, 17, n)
		for _, bad := range []string{"", "x", "0", "-3"} {
			_, err = ParseNumber(bad)
			assert.True(t, errors.Is(err, utils.ErrMalformedPayload), bad)
		}
	})

	t.Run("responses", func(t *testing.T) {
		assert.Equal(t, "ERROR Unknown command: FOO", UnknownCommand("FOO"))

		body, err := CheckResponse("[]\n")
		require.NoError(t, err)
		assert.Equal(t, "[]", body)

		_, err = CheckResponse("ERROR range out of bounds\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, utils.ErrMalformedPayload))
		assert.Contains(t, err.Error(), "range out of bounds")
	})
}

func TestFrame(t *testing.T) {
	t.Run("opcodes", func(t *testing.T) {
		assert.Equal(t, Number, OpNumber.Command())
		assert.Equal(t, KMeans, OpKMeans.Command())
		assert.Equal(t, Location, OpLocation.Command())
		assert.Equal(t, Terminate, OpTerminate.Command())
		assert.Equal(t, Command("7"), Opcode(7).Command())
		assert.True(t, OpNumber.HasPayload())
		assert.False(t, OpTerminate.HasPayload())
	})

	t.Run("integers are 4-byte big-endian", func(t *testing.T) {
		assert.Equal(t, []byte{0, 0, 0, 9}, EncodeInt(9))
		v, err := DecodeInt([]byte{0, 0, 1, 2})
		require.NoError(t, err)
		assert.Equal(t, int32(258), v)
		_, err = DecodeInt([]byte{1, 2})
		assert.Error(t, err)
	})

	t.Run("chunks", func(t *testing.T) {
		assert.Empty(t, SplitChunks(nil, 4))
		data := []byte("0123456789")
		chunks := SplitChunks(data, 4)
		require.Len(t, chunks, 3)
		assert.Equal(t, []byte("89"), chunks[2])
		assert.Equal(t, data, bytes.Join(chunks, nil))
		assert.Len(t, SplitChunks(data, 10), 1)
	})
}
