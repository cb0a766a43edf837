package protocol

import (
	"encoding/json"

	"github.com/WatchJani/K-means/utils"
)

// SchemaVersion is the version of the JSON payload schema spoken by JSONCodec
const SchemaVersion = 1

// Payload : body of KMEANS and LOCATION requests
type Payload struct {
	Start     int          `json:"start"`
	End       int          `json:"end"`
	Centroids utils.Points `json:"centroids"`
}

// Partition returns the range the payload refers to
func (p Payload) Partition() utils.Partition {
	return utils.Partition{Start: p.Start, End: p.End}
}

// PartialCentroid : one entry of a KMEANS response, the partial mean of a cluster and its size
type PartialCentroid struct {
	utils.Point
	Count int `json:"count"`
}

// AggregatesResponse : body of a KMEANS response, ordered by cluster index
type AggregatesResponse struct {
	Centroids []PartialCentroid `json:"centroids"`
}

// Codec serializes the payload of the commands; the framing is left to the transports
type Codec interface {
	Version() int
	EncodePayload(p Payload) ([]byte, error)
	DecodePayload(data []byte) (Payload, error)
	EncodeAggregates(partials []utils.PartialAggregate, centroids utils.Points) ([]byte, error)
	DecodeAggregates(data []byte, k int) ([]utils.PartialAggregate, error)
	EncodePoints(points utils.Points) ([]byte, error)
	DecodePoints(data []byte) (utils.Points, error)
}

// JSONCodec : version 1 of the schema
type JSONCodec struct{}

var _ Codec = JSONCodec{}

func (JSONCodec) Version() int {
	return SchemaVersion
}

func (JSONCodec) EncodePayload(p Payload) ([]byte, error) {
	s, err := json.Marshal(&p)
	if err != nil {
		return nil, utils.Malformed(err, "payload marshalling")
	}
	return s, nil
}

func (JSONCodec) DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, utils.Malformed(err, "payload unmarshalling")
	}
	if p.Start < 0 || p.End < p.Start {
		return p, utils.Malformed(nil, "invalid range [%d, %d)", p.Start, p.End)
	}
	if len(p.Centroids) == 0 {
		return p, utils.Malformed(nil, "no centroids in payload")
	}
	return p, nil
}

// EncodeAggregates sends each cluster as its partial mean plus count, keeping the centroid label
func (JSONCodec) EncodeAggregates(partials []utils.PartialAggregate, centroids utils.Points) ([]byte, error) {
	var resp AggregatesResponse
	resp.Centroids = make([]PartialCentroid, len(partials))
	for i, a := range partials {
		label := ""
		if i < len(centroids) {
			label = centroids[i].Label
		}
		mean, _ := a.Mean(label)
		resp.Centroids[i] = PartialCentroid{Point: mean, Count: a.Count}
	}
	s, err := json.Marshal(&resp)
	if err != nil {
		return nil, utils.Malformed(err, "aggregates marshalling")
	}
	return s, nil
}

// DecodeAggregates restores the sums from the (mean, count) pairs; k is the expected cluster count
func (JSONCodec) DecodeAggregates(data []byte, k int) ([]utils.PartialAggregate, error) {
	var resp AggregatesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, utils.Malformed(err, "aggregates unmarshalling")
	}
	if len(resp.Centroids) != k {
		return nil, utils.Malformed(nil, "expected %d clusters, got %d", k, len(resp.Centroids))
	}
	res := make([]utils.PartialAggregate, k)
	for i, c := range resp.Centroids {
		if c.Count < 0 {
			return nil, utils.Malformed(nil, "negative count for cluster %d", i)
		}
		res[i] = utils.FromMean(c.Point, c.Count)
	}
	return res, nil
}

func (JSONCodec) EncodePoints(points utils.Points) ([]byte, error) {
	if points == nil {
		points = utils.Points{}
	}
	s, err := json.Marshal(points)
	if err != nil {
		return nil, utils.Malformed(err, "points marshalling")
	}
	return s, nil
}

func (JSONCodec) DecodePoints(data []byte) (utils.Points, error) {
	var points utils.Points
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, utils.Malformed(err, "points unmarshalling")
	}
	return points, nil
}
